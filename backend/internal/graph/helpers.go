package graph

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"blog-graph/backend/internal/models"
)

// ============================================================================
// Record Mapping
// ============================================================================

// graphFromRecords rebuilds node-link data from the per-node adjacency
// projection. Targets are always GraphNode ids, so edges never dangle.
func graphFromRecords(records []*neo4j.Record) *models.GraphData {
	data := models.NewGraphData()
	for _, record := range records {
		rec := nodeRecord{
			ID:        getStringFromRecord(record, "id"),
			Label:     getStringFromRecord(record, "label"),
			Type:      getStringFromRecord(record, "type"),
			Title:     getStringFromRecord(record, "title"),
			URL:       getStringFromRecord(record, "url"),
			Summary:   getStringFromRecord(record, "summary"),
			Category:  getStringFromRecord(record, "category"),
			Weight:    getFloat64FromRecord(record, "weight"),
			Relevance: getFloat64FromRecord(record, "relevance"),
		}
		if rec.ID == "" {
			continue
		}
		data.Nodes = append(data.Nodes, rec.toNode())

		for _, rel := range getMapSliceFromRecord(record, "relationships") {
			target := getStringFromMap(rel, "target", "")
			if target == "" {
				continue
			}
			edge := models.Edge{
				Source: rec.ID,
				Target: target,
				Type:   getStringFromMap(rel, "type", models.RelRelatedTo),
			}
			weight := getFloat64FromMap(rel, "weight", 0)
			origin := getStringFromMap(rel, "source", "")
			if weight != 0 || origin != "" {
				edge.Properties = &models.EdgeProperties{Weight: weight, Source: origin}
			}
			data.Relationships = append(data.Relationships, edge)
		}
	}
	return data
}

// ============================================================================
// Helper Functions
// ============================================================================

func getStringFromRecord(record *neo4j.Record, key string) string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

func getIntFromRecord(record *neo4j.Record, key string) int {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0
	}
	if i, ok := val.(int64); ok {
		return int(i)
	}
	if i, ok := val.(int); ok {
		return i
	}
	return 0
}

func getFloat64FromRecord(record *neo4j.Record, key string) float64 {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0.0
	}
	if f, ok := val.(float64); ok {
		return f
	}
	if i, ok := val.(int64); ok {
		return float64(i)
	}
	return 0.0
}

func getStringSliceFromRecord(record *neo4j.Record, key string) []string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return []string{}
	}
	if slice, ok := val.([]interface{}); ok {
		result := make([]string, 0, len(slice))
		for _, v := range slice {
			if str, ok := v.(string); ok {
				result = append(result, str)
			}
		}
		return result
	}
	return []string{}
}

func getMapSliceFromRecord(record *neo4j.Record, key string) []map[string]interface{} {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return nil
	}
	slice, ok := val.([]interface{})
	if !ok {
		return nil
	}
	result := make([]map[string]interface{}, 0, len(slice))
	for _, v := range slice {
		if m, ok := v.(map[string]interface{}); ok {
			result = append(result, m)
		}
	}
	return result
}

func getStringFromMap(m map[string]interface{}, key, defaultValue string) string {
	val, ok := m[key]
	if !ok || val == nil {
		return defaultValue
	}
	if str, ok := val.(string); ok {
		return str
	}
	return defaultValue
}

func getFloat64FromMap(m map[string]interface{}, key string, defaultValue float64) float64 {
	val, ok := m[key]
	if !ok || val == nil {
		return defaultValue
	}
	if f, ok := val.(float64); ok {
		return f
	}
	if i, ok := val.(int64); ok {
		return float64(i)
	}
	return defaultValue
}
