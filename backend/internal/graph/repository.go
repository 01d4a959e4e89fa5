package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"blog-graph/backend/internal/models"
	apperrors "blog-graph/backend/pkg/errors"
	"blog-graph/backend/pkg/logger"
)

// Options configures the Neo4j connection
type Options struct {
	URI      string
	User     string
	Password string
	Database string // empty selects the server default
}

// Repository handles all Neo4j database operations
type Repository struct {
	driver   neo4j.DriverWithContext
	uri      string
	database string
	logger   *zap.Logger
}

// Open connects to Neo4j and verifies connectivity. The caller owns the
// returned Repository and must Close it.
func Open(ctx context.Context, opts Options) (*Repository, error) {
	driver, err := neo4j.NewDriverWithContext(opts.URI, neo4j.BasicAuth(opts.User, opts.Password, ""))
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(opts.URI, err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, apperrors.NewStoreUnavailable(opts.URI, err)
	}

	repo := NewRepository(driver)
	repo.uri = opts.URI
	repo.database = opts.Database
	return repo, nil
}

// NewRepository creates a new graph repository over an existing driver
func NewRepository(driver neo4j.DriverWithContext) *Repository {
	return &Repository{
		driver: driver,
		logger: logger.Named("graph"),
	}
}

// Close closes the Neo4j driver connection
func (r *Repository) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

func (r *Repository) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: r.database})
}

// wrapErr maps driver failures onto the store error taxonomy
func (r *Repository) wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewContextCancelled(op, err)
	}
	if neo4j.IsConnectivityError(err) {
		return apperrors.NewStoreUnavailable(r.uri, fmt.Errorf("%s: %w", op, err))
	}
	return apperrors.NewGraphQueryFailed(op, err)
}

// EnsureSchema creates the id uniqueness constraint and lookup indexes.
// Failures are logged and skipped so an older server can still be used.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	statements := []string{
		"CREATE CONSTRAINT graph_node_id IF NOT EXISTS FOR (n:GraphNode) REQUIRE n.id IS UNIQUE",
		"CREATE INDEX graph_node_category IF NOT EXISTS FOR (n:GraphNode) ON (n.category)",
		"CREATE INDEX graph_node_type IF NOT EXISTS FOR (n:GraphNode) ON (n.type)",
	}

	for _, stmt := range statements {
		if _, err := session.Run(ctx, stmt, nil); err != nil {
			if neo4j.IsConnectivityError(err) {
				return apperrors.NewStoreUnavailable(r.uri, err)
			}
			r.logger.Warn("Failed to apply schema statement",
				zap.String("statement", stmt),
				zap.Error(err),
			)
		}
	}
	return nil
}

// UpsertNode merges a node by id
func (r *Repository) UpsertNode(ctx context.Context, node models.Node) error {
	if err := node.Validate(); err != nil {
		return err
	}
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, mergeNode(ctx, tx, recordFromNode(&node))
	})
	if err != nil {
		return r.wrapErr("upsert node", err)
	}
	return nil
}

// UpsertEdge merges a typed relationship between two existing nodes
func (r *Repository) UpsertEdge(ctx context.Context, edge models.Edge) error {
	if err := edge.Validate(); err != nil {
		return err
	}
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	var written bool
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		var err error
		written, err = mergeEdge(ctx, tx, &edge)
		return nil, err
	})
	if err != nil {
		return r.wrapErr("upsert edge", err)
	}
	if !written {
		return apperrors.NewPartialWriteFailure("edge", edge.Key(), "endpoint not found", nil)
	}
	return nil
}

// WriteGraph writes every node, then every edge, in a single transaction.
// Invalid items are skipped and reported rather than failing the batch.
func (r *Repository) WriteGraph(ctx context.Context, data *models.GraphData) (*WriteResult, error) {
	records := make([]nodeRecord, 0, len(data.Nodes))
	for i := range data.Nodes {
		records = append(records, recordFromNode(&data.Nodes[i]))
	}
	return r.write(ctx, "write graph", records, data.Relationships, false)
}

// Import writes externally supplied nodes and relationships, coercing node
// types first. With Replace set the store is cleared in the same transaction.
func (r *Repository) Import(ctx context.Context, req *models.ImportRequest) (*WriteResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req.Coerce()

	records := make([]nodeRecord, 0, len(req.Nodes))
	for i := range req.Nodes {
		records = append(records, recordFromImport(&req.Nodes[i]))
	}
	return r.write(ctx, "import", records, importEdges(req), req.Replace)
}

func (r *Repository) write(ctx context.Context, op string, nodes []nodeRecord, edges []models.Edge, clearFirst bool) (*WriteResult, error) {
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	var result *WriteResult
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		// The driver may retry this function; start from a clean result each time.
		result = &WriteResult{}

		if clearFirst {
			if _, err := tx.Run(ctx, "MATCH (n:GraphNode) DETACH DELETE n", nil); err != nil {
				return nil, err
			}
		}

		for _, rec := range nodes {
			if rec.ID == "" {
				result.skip("node", rec.ID, "id cannot be empty", nil)
				continue
			}
			if err := mergeNode(ctx, tx, rec); err != nil {
				return nil, err
			}
			result.NodesWritten++
		}

		for i := range edges {
			edge := edges[i]
			if err := edge.Validate(); err != nil {
				result.skip("edge", edge.Key(), "invalid edge", err)
				continue
			}
			if _, err := sanitizeRelType(edge.Type); err != nil {
				result.skip("edge", edge.Key(), "invalid relationship type", err)
				continue
			}
			written, err := mergeEdge(ctx, tx, &edge)
			if err != nil {
				return nil, err
			}
			if !written {
				result.skip("edge", edge.Key(), "endpoint not found", nil)
				continue
			}
			result.EdgesWritten++
		}
		return nil, nil
	})
	if err != nil {
		return nil, r.wrapErr(op, err)
	}

	for _, skipped := range result.Skipped {
		r.logger.Warn("Skipped graph element",
			zap.String("operation", op),
			zap.String("kind", skipped.Kind),
			zap.String("id", skipped.ID),
			zap.Error(skipped),
		)
	}
	r.logger.Info("Graph written",
		zap.String("operation", op),
		zap.Int("nodes", result.NodesWritten),
		zap.Int("relationships", result.EdgesWritten),
		zap.Int("skipped", len(result.Skipped)),
	)
	return result, nil
}

func mergeNode(ctx context.Context, tx neo4j.ManagedTransaction, rec nodeRecord) error {
	// Labels cannot be parameters; storeLabel only returns fixed constants.
	query := fmt.Sprintf(`
		MERGE (n:GraphNode {id: $id})
		ON CREATE SET
			n.type = $type,
			n.title = $title,
			n.label = $label,
			n.weight = $weight,
			n.relevance = $relevance
		SET n.url = $url,
		    n.summary = $summary,
		    n.category = $category,
		    n:%s
	`, rec.storeLabel())

	_, err := tx.Run(ctx, query, map[string]interface{}{
		"id":        rec.ID,
		"type":      rec.Type,
		"title":     rec.Title,
		"label":     rec.Label,
		"weight":    rec.Weight,
		"relevance": rec.Relevance,
		"url":       rec.URL,
		"summary":   rec.Summary,
		"category":  rec.Category,
	})
	if err != nil {
		return fmt.Errorf("failed to merge node %s: %w", rec.ID, err)
	}
	return nil
}

// mergeEdge reports false when either endpoint does not exist
func mergeEdge(ctx context.Context, tx neo4j.ManagedTransaction, edge *models.Edge) (bool, error) {
	relType, err := sanitizeRelType(edge.Type)
	if err != nil {
		return false, err
	}

	var weight float64
	var source string
	if edge.Properties != nil {
		weight = edge.Properties.Weight
		source = edge.Properties.Source
	}

	query := fmt.Sprintf(`
		MATCH (s:GraphNode {id: $source}), (t:GraphNode {id: $target})
		MERGE (s)-[r:%s]->(t)
		ON CREATE SET r.weight = $weight, r.source = $origin
		RETURN count(r) AS written
	`, relType)

	result, err := tx.Run(ctx, query, map[string]interface{}{
		"source": edge.Source,
		"target": edge.Target,
		"weight": weight,
		"origin": source,
	})
	if err != nil {
		return false, fmt.Errorf("failed to merge edge %s: %w", edge.Key(), err)
	}
	record, err := result.Single(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read edge merge result: %w", err)
	}
	return getIntFromRecord(record, "written") > 0, nil
}

const projection = `
	RETURN n.id AS id,
	       n.label AS label,
	       n.type AS type,
	       n.title AS title,
	       n.url AS url,
	       n.summary AS summary,
	       n.category AS category,
	       n.weight AS weight,
	       n.relevance AS relevance,
	       collect(DISTINCT CASE WHEN m IS NULL THEN NULL
	           ELSE {type: type(r), target: m.id, weight: r.weight, source: r.source} END) AS relationships
	ORDER BY id
`

// QueryAll returns every node with its outgoing adjacency
func (r *Repository) QueryAll(ctx context.Context) (*models.GraphData, error) {
	query := `
		MATCH (n:GraphNode)
		OPTIONAL MATCH (n)-[r]->(m:GraphNode)
	` + projection
	return r.queryGraph(ctx, "query all", query, nil)
}

// QueryByTag returns nodes of one category and the edges among them
func (r *Repository) QueryByTag(ctx context.Context, tag string) (*models.GraphData, error) {
	query := `
		MATCH (n:GraphNode {category: $tag})
		OPTIONAL MATCH (n)-[r]->(m:GraphNode {category: $tag})
	` + projection
	return r.queryGraph(ctx, "query by tag", query, map[string]interface{}{"tag": tag})
}

func (r *Repository) queryGraph(ctx context.Context, op, query string, params map[string]interface{}) (*models.GraphData, error) {
	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		records, err := result.Collect(ctx)
		if err != nil {
			return nil, err
		}
		return graphFromRecords(records), nil
	})
	if err != nil {
		return nil, r.wrapErr(op, err)
	}

	data := out.(*models.GraphData)
	r.logger.Debug("Graph queried",
		zap.String("operation", op),
		zap.Int("nodes", len(data.Nodes)),
		zap.Int("relationships", len(data.Relationships)),
	)
	return data, nil
}

// Tags returns the distinct categories of blog nodes, sorted
func (r *Repository) Tags(ctx context.Context) ([]string, error) {
	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, `
			MATCH (n:GraphNode {type: 'blog'})
			WHERE n.category IS NOT NULL AND n.category <> ''
			RETURN DISTINCT n.category AS tag
			ORDER BY tag
		`, nil)
		if err != nil {
			return nil, err
		}
		records, err := result.Collect(ctx)
		if err != nil {
			return nil, err
		}
		tags := make([]string, 0, len(records))
		for _, rec := range records {
			tags = append(tags, getStringFromRecord(rec, "tag"))
		}
		return tags, nil
	})
	if err != nil {
		return nil, r.wrapErr("tags", err)
	}
	return out.([]string), nil
}

// RemoveBlog deletes a blog node, the co-occurrence edges it produced, and
// any entity no other blog still contains.
func (r *Repository) RemoveBlog(ctx context.Context, slug string) (*RemoveResult, error) {
	blogID := models.BlogNodeID(slug)
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	out, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, `
			MATCH (b:GraphNode {id: $id})
			OPTIONAL MATCH (b)-[:CONTAINS]->(e:GraphNode)
			WITH b, collect(DISTINCT e.id) AS entityIds
			DETACH DELETE b
			RETURN entityIds
		`, map[string]interface{}{"id": blogID})
		if err != nil {
			return nil, err
		}
		if !result.Next(ctx) {
			if err := result.Err(); err != nil {
				return nil, err
			}
			return nil, ErrNodeNotFound{ID: blogID}
		}
		entityIDs := getStringSliceFromRecord(result.Record(), "entityIds")

		res := &RemoveResult{BlogID: blogID}

		edges, err := tx.Run(ctx, `
			MATCH ()-[r]->()
			WHERE r.source = $slug
			DELETE r
			RETURN count(r) AS removed
		`, map[string]interface{}{"slug": slug})
		if err != nil {
			return nil, err
		}
		rec, err := edges.Single(ctx)
		if err != nil {
			return nil, err
		}
		res.EdgesRemoved = getIntFromRecord(rec, "removed")

		orphans, err := tx.Run(ctx, `
			MATCH (e:GraphNode)
			WHERE e.id IN $ids AND NOT (:Blog)-[:CONTAINS]->(e)
			DETACH DELETE e
			RETURN count(e) AS removed
		`, map[string]interface{}{"ids": entityIDs})
		if err != nil {
			return nil, err
		}
		rec, err = orphans.Single(ctx)
		if err != nil {
			return nil, err
		}
		res.EntitiesRemoved = getIntFromRecord(rec, "removed")
		return res, nil
	})
	if err != nil {
		var notFound ErrNodeNotFound
		if errors.As(err, &notFound) {
			return nil, notFound
		}
		return nil, r.wrapErr("remove blog", err)
	}

	res := out.(*RemoveResult)
	r.logger.Info("Blog removed from graph",
		zap.String("blog_id", blogID),
		zap.Int("entities_removed", res.EntitiesRemoved),
		zap.Int("edges_removed", res.EdgesRemoved),
	)
	return res, nil
}

// Clear detach-deletes every graph node
func (r *Repository) Clear(ctx context.Context) error {
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, "MATCH (n:GraphNode) DETACH DELETE n", nil)
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		return r.wrapErr("clear", err)
	}
	r.logger.Info("Graph cleared")
	return nil
}

// Errors

type ErrNodeNotFound struct {
	ID string
}

func (e ErrNodeNotFound) Error() string {
	return fmt.Sprintf("node not found: %s", e.ID)
}
