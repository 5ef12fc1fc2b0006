package shift

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
)

// PropertySchema maps property names to their declared types.
type PropertySchema map[string]PropertyType

// PropertyInfo is one entry of a listed schema.
type PropertyInfo struct {
	Name string       `json:"name"`
	Type PropertyType `json:"type"`
}

// Inspector reads the declared properties of the target database.
type Inspector struct {
	remote     Remote
	databaseID string
	logger     *slog.Logger
}

// NewInspector creates an Inspector for databaseID.
func NewInspector(remote Remote, databaseID string, logger *slog.Logger) *Inspector {
	return &Inspector{remote: remote, databaseID: databaseID, logger: logger}
}

// FetchSchema returns the current schema. Failures are logged and yield an empty schema,
// which leaves every filter unresolvable.
func (i *Inspector) FetchSchema(ctx context.Context) PropertySchema {
	schema, err := i.fetch(ctx)
	if err != nil {
		i.logger.Error("schema: fetch database properties failed", slog.String("error", err.Error()))
		return PropertySchema{}
	}
	i.logger.Info("schema: properties fetched", slog.Int("count", len(schema)))
	return schema
}

// ListProperties returns the schema sorted by name.
func (i *Inspector) ListProperties(ctx context.Context) ([]PropertyInfo, error) {
	schema, err := i.fetch(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]PropertyInfo, 0, len(schema))
	for name, typ := range schema {
		out = append(out, PropertyInfo{Name: name, Type: typ})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out, nil
}

// Ping checks that the database is reachable with the configured credentials.
func (i *Inspector) Ping(ctx context.Context) error {
	_, err := i.fetch(ctx)
	return err
}

func (i *Inspector) fetch(ctx context.Context) (PropertySchema, error) {
	db, err := i.remote.RetrieveDatabase(ctx, i.databaseID)
	if err != nil {
		return nil, fmt.Errorf("schema: retrieve database: %w", err)
	}
	schema := make(PropertySchema, len(db.Properties))
	for name, def := range db.Properties {
		schema[name] = PropertyType(def.Type)
	}
	return schema, nil
}
