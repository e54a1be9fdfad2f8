package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/GeorgeMargineanu/toolgate/internal/domain/users"
)

// ToolCreateUser is the registry name of the user-creation tool.
const ToolCreateUser = "create_user"

// CreateUserExecutor adds entries to the user registry. The registry's fixed
// operating mode decides whether a real OS account is created.
type CreateUserExecutor struct {
	registry *users.Registry
}

// NewCreateUserExecutor returns an executor over the given registry.
func NewCreateUserExecutor(registry *users.Registry) *CreateUserExecutor {
	return &CreateUserExecutor{registry: registry}
}

type createUserArgs struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

type createUserResult struct {
	Username   string   `json:"username"`
	Roles      []string `json:"roles"`
	SystemUser bool     `json:"system_user"`
}

func (e *CreateUserExecutor) Execute(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	var in createUserArgs
	if err := json.Unmarshal(args, &in); err != nil {
		// Schema validation already requires an array of strings; a decode
		// failure here means the roles shape slipped through somehow.
		return nil, fmt.Errorf("%w: %v", users.ErrInvalidRoles, err)
	}

	created, err := e.registry.Create(ctx, in.Username, in.Roles)
	if err != nil {
		return nil, err
	}

	out, err := json.Marshal(createUserResult{
		Username:   created.Username,
		Roles:      created.Roles,
		SystemUser: created.SystemUser,
	})
	if err != nil {
		return nil, fmt.Errorf("create_user: encode result: %w", err)
	}
	return out, nil
}

// CreateUserContract pairs the create-user schema with its executor.
func CreateUserContract(registry *users.Registry) Contract {
	return Contract{
		Name:        ToolCreateUser,
		Description: "Create a user account with the given roles.",
		Schema: Schema{
			Required: []string{"username", "roles"},
			Fields: []Field{
				{Name: "username", Type: TypeString},
				{Name: "roles", Type: TypeArray, Items: TypeString},
			},
		},
		Executor: NewCreateUserExecutor(registry),
	}
}
