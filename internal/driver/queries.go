package driver

// IndexQueries are run once per connection by BuildIndices.
var IndexQueries = []string{
	"CREATE INDEX ON :SchemaType(namespace);",
	"CREATE INDEX ON :SchemaType(key);",
	"CREATE INDEX ON :SchemaNamespace(name);",
}

const (
	SaveSchemaTypeQuery = `
		MERGE (n:SchemaType {namespace: $namespace, key: $key})
		SET n.entity_type = $entity_type,
			n.name = $name,
			n.label = $label,
			n.description = $description,
			n.semantic_type = $semantic_type,
			n.properties = $properties,
			n.provenance = $provenance,
			n.removal_suggested = $removal_suggested,
			n.position = $position,
			n.updated_at = $updated_at
		RETURN n.key AS key
	`

	SaveSchemaNamespaceQuery = `
		MERGE (s:SchemaNamespace {name: $namespace})
		SET s.entity_count = $entity_count,
			s.updated_at = $updated_at
		RETURN s.name AS name
	`

	DeleteStaleSchemaTypesQuery = `
		MATCH (n:SchemaType {namespace: $namespace})
		WHERE NOT n.key IN $keys
		DETACH DELETE n
		RETURN count(*) AS deleted
	`

	GetSchemaNamespaceQuery = `
		MATCH (s:SchemaNamespace {name: $namespace})
		RETURN s.name AS name, s.entity_count AS entity_count
	`

	LoadSchemaTypesQuery = `
		MATCH (n:SchemaType {namespace: $namespace})
		RETURN n.entity_type AS entity_type,
			n.name AS name,
			n.label AS label,
			n.description AS description,
			n.semantic_type AS semantic_type,
			n.properties AS properties,
			n.provenance AS provenance,
			n.removal_suggested AS removal_suggested
		ORDER BY n.position ASC
	`
)
