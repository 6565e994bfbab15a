package surreal

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/surrealdb/surrealdb.go"
)

type Client struct {
	db *surrealdb.DB
}

// identifierRegex ensures that table names and fields only contain alphanumeric characters and underscores
var identifierRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

func validateIdentifier(s string) error {
	if !identifierRegex.MatchString(s) {
		return fmt.Errorf("invalid identifier: %s", s)
	}
	return nil
}

func NewClient(ctx context.Context, host, user, pass, namespace, database string) (*Client, error) {
	db, err := surrealdb.New(host)
	if err != nil {
		return nil, fmt.Errorf("failed to create surrealdb client: %w", err)
	}

	if _, err = db.SignIn(ctx, map[string]interface{}{
		"user": user,
		"pass": pass,
	}); err != nil {
		return nil, fmt.Errorf("failed to signin to surrealdb: %w", err)
	}

	if err = db.Use(ctx, namespace, database); err != nil {
		return nil, fmt.Errorf("failed to use surrealdb namespace/database: %w", err)
	}

	return &Client{db: db}, nil
}

// NormalizeHost adds the websocket scheme and rpc path to a bare host.
func NormalizeHost(host string) string {
	if host == "" || strings.HasPrefix(host, "ws://") || strings.HasPrefix(host, "wss://") {
		return host
	}
	return "wss://" + host + "/rpc"
}

func (c *Client) Close(ctx context.Context) {
	c.db.Close(ctx)
}

// Query runs sql and returns the result of the last statement.
func (c *Client) Query(ctx context.Context, sql string, vars map[string]interface{}) (interface{}, error) {
	result, err := surrealdb.Query[interface{}](ctx, c.db, sql, vars)
	if err != nil {
		return nil, err
	}

	// Unwrap the result: *[]QueryResult -> Result field of the last statement
	rv := reflect.ValueOf(result)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}

	if rv.Kind() == reflect.Struct {
		resField := rv.FieldByName("Result")
		if resField.IsValid() {
			return resField.Interface(), nil
		}
	} else if rv.Kind() == reflect.Slice {
		if rv.Len() > 0 {
			lastElem := rv.Index(rv.Len() - 1)
			if lastElem.Kind() == reflect.Struct {
				resField := lastElem.FieldByName("Result")
				if resField.IsValid() {
					return resField.Interface(), nil
				}
			}
		}
	}

	return result, nil
}

// Upsert writes content into table:id, replacing any existing record.
func (c *Client) Upsert(ctx context.Context, table, id string, content map[string]interface{}) error {
	if err := validateIdentifier(table); err != nil {
		return err
	}
	query := fmt.Sprintf(`UPSERT type::thing("%s", $id) CONTENT $content;`, table)
	_, err := c.Query(ctx, query, map[string]interface{}{
		"id":      id,
		"content": content,
	})
	return err
}

// SelectWhere decodes every row of table matching filter into dest, which
// must be a pointer to a slice.
func (c *Client) SelectWhere(ctx context.Context, table string, filter map[string]interface{}, dest interface{}) error {
	if err := validateIdentifier(table); err != nil {
		return err
	}
	whereClause, err := buildWhereClause(filter)
	if err != nil {
		return err
	}

	result, err := c.Query(ctx, fmt.Sprintf("SELECT * FROM %s WHERE %s;", table, whereClause), filter)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}

	// Round trip through JSON to get from the driver's generic maps to dest.
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to re-encode surreal result: %w", err)
	}
	return json.Unmarshal(raw, dest)
}

func (c *Client) DeleteWhere(ctx context.Context, table string, filter map[string]interface{}) error {
	if err := validateIdentifier(table); err != nil {
		return err
	}
	whereClause, err := buildWhereClause(filter)
	if err != nil {
		return err
	}
	_, err = c.Query(ctx, fmt.Sprintf("DELETE %s WHERE %s;", table, whereClause), filter)
	return err
}

func buildWhereClause(filter map[string]interface{}) (string, error) {
	if len(filter) == 0 {
		return "true", nil
	}
	keys := make([]string, 0, len(filter))
	for k := range filter {
		// Validate filter keys
		if err := validateIdentifier(k); err != nil {
			return "", err
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s = $%s", k, k)
	}
	return strings.Join(parts, " AND "), nil
}
