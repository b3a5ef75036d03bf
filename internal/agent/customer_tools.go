package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Kjdragan/codescribe/internal/models"
)

// CustomerAccessor is the subset of store.CustomerStore the tools need.
type CustomerAccessor interface {
	Create(ctx context.Context, email, fullName, bio string) (*models.Customer, error)
	GetByEmail(ctx context.Context, email string) (*models.Customer, error)
	UpdateByEmail(ctx context.Context, email, fullName, bio string) (int64, error)
	DeleteByEmail(ctx context.Context, email string) (int64, error)
}

// CreatedHook runs after a successful create_customer call.
type CreatedHook func(ctx context.Context, c *models.Customer)

// CustomerTools returns the four CRUD tools bound to the given accessor.
func CustomerTools(store CustomerAccessor, onCreated CreatedHook) []Tool {
	return []Tool{
		&createCustomerTool{store: store, onCreated: onCreated},
		&getCustomerTool{store: store},
		&updateCustomerTool{store: store},
		&deleteCustomerTool{store: store},
	}
}

// rowsResult mirrors the {"data": [...]} shape the model sees for reads and
// inserts. An empty slice means no matching customer.
type rowsResult struct {
	Data []models.Customer `json:"data"`
}

type affectedResult struct {
	Email        string `json:"email"`
	RowsAffected int64  `json:"rows_affected"`
}

var (
	emailParam = map[string]interface{}{
		"type":        "string",
		"description": "Customer email address",
	}
	fullNameParam = map[string]interface{}{
		"type":        "string",
		"description": "Customer's full name",
	}
	bioParam = map[string]interface{}{
		"type":        "string",
		"description": "Customer biography/description",
	}
)

func objectSchema(props map[string]interface{}, required ...string) map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// create_customer
// ─────────────────────────────────────────────────────────────────────────────

type createCustomerTool struct {
	store     CustomerAccessor
	onCreated CreatedHook
}

func (t *createCustomerTool) Name() string { return "create_customer" }

func (t *createCustomerTool) Description() string {
	return "Create a new customer record in the database with email, full_name, and bio."
}

func (t *createCustomerTool) Parameters() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"email":     emailParam,
		"full_name": fullNameParam,
		"bio":       bioParam,
	}, "email", "full_name", "bio")
}

func (t *createCustomerTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	email, err := stringArg(args, "email")
	if err != nil {
		return "", err
	}
	fullName, err := stringArg(args, "full_name")
	if err != nil {
		return "", err
	}
	bio, err := stringArg(args, "bio")
	if err != nil {
		return "", err
	}

	customer, err := t.store.Create(ctx, email, fullName, bio)
	if err != nil {
		return "", err
	}

	if t.onCreated != nil {
		t.onCreated(ctx, customer)
	}
	return encode(rowsResult{Data: []models.Customer{*customer}})
}

// ─────────────────────────────────────────────────────────────────────────────
// get_customer_by_email
// ─────────────────────────────────────────────────────────────────────────────

type getCustomerTool struct {
	store CustomerAccessor
}

func (t *getCustomerTool) Name() string { return "get_customer_by_email" }

func (t *getCustomerTool) Description() string {
	return "Retrieve a customer record by their email address. An empty data list means no customer has that email."
}

func (t *getCustomerTool) Parameters() map[string]interface{} {
	return objectSchema(map[string]interface{}{"email": emailParam}, "email")
}

func (t *getCustomerTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	email, err := stringArg(args, "email")
	if err != nil {
		return "", err
	}

	customer, err := t.store.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	result := rowsResult{Data: []models.Customer{}}
	if customer != nil {
		result.Data = append(result.Data, *customer)
	}
	return encode(result)
}

// ─────────────────────────────────────────────────────────────────────────────
// update_customer_by_email
// ─────────────────────────────────────────────────────────────────────────────

type updateCustomerTool struct {
	store CustomerAccessor
}

func (t *updateCustomerTool) Name() string { return "update_customer_by_email" }

func (t *updateCustomerTool) Description() string {
	return "Update a customer's full_name and bio using their email. rows_affected is 0 when no customer has that email."
}

func (t *updateCustomerTool) Parameters() map[string]interface{} {
	return objectSchema(map[string]interface{}{
		"email":     emailParam,
		"full_name": fullNameParam,
		"bio":       bioParam,
	}, "email", "full_name", "bio")
}

func (t *updateCustomerTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	email, err := stringArg(args, "email")
	if err != nil {
		return "", err
	}
	fullName, err := stringArg(args, "full_name")
	if err != nil {
		return "", err
	}
	bio, err := stringArg(args, "bio")
	if err != nil {
		return "", err
	}

	n, err := t.store.UpdateByEmail(ctx, email, fullName, bio)
	if err != nil {
		return "", err
	}
	return encode(affectedResult{Email: email, RowsAffected: n})
}

// ─────────────────────────────────────────────────────────────────────────────
// delete_customer_by_email
// ─────────────────────────────────────────────────────────────────────────────

type deleteCustomerTool struct {
	store CustomerAccessor
}

func (t *deleteCustomerTool) Name() string { return "delete_customer_by_email" }

func (t *deleteCustomerTool) Description() string {
	return "Delete a customer record by their email address. rows_affected is 0 when no customer has that email."
}

func (t *deleteCustomerTool) Parameters() map[string]interface{} {
	return objectSchema(map[string]interface{}{"email": emailParam}, "email")
}

func (t *deleteCustomerTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	email, err := stringArg(args, "email")
	if err != nil {
		return "", err
	}

	n, err := t.store.DeleteByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	return encode(affectedResult{Email: email, RowsAffected: n})
}

func stringArg(args map[string]interface{}, name string) (string, error) {
	v, ok := args[name]
	if !ok {
		return "", fmt.Errorf("%s parameter is required", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s parameter must be a string", name)
	}
	return s, nil
}

func encode(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode tool result: %w", err)
	}
	return string(b), nil
}
