package store

import (
	"context"
	"errors"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/shawnsang/auto-openspg-schema/internal/driver"
)

type executedQuery struct {
	Query  string
	Params map[string]interface{}
}

// MockDriver records every query and answers from Results, keyed by query
// text. Unknown queries return an empty result. Statements of a write
// transaction land in Committed only when the whole transaction succeeds;
// FailOn makes the statement with that query text fail.
type MockDriver struct {
	Executed     []executedQuery
	Committed    []executedQuery
	Transactions int
	Results      map[string]neo4j.EagerResult
	FailOn       string
	Err          error
}

func (m *MockDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	m.Executed = append(m.Executed, executedQuery{Query: query, Params: params})
	if m.Err != nil {
		return neo4j.EagerResult{}, m.Err
	}
	return m.Results[query], nil
}

func (m *MockDriver) ExecuteWrite(ctx context.Context, stmts []driver.Statement) ([]neo4j.EagerResult, error) {
	m.Transactions++
	var pending []executedQuery
	results := make([]neo4j.EagerResult, 0, len(stmts))
	for _, st := range stmts {
		q := executedQuery{Query: st.Query, Params: st.Params}
		m.Executed = append(m.Executed, q)
		if m.Err != nil {
			return nil, m.Err
		}
		if m.FailOn != "" && st.Query == m.FailOn {
			return nil, errors.New("statement rejected")
		}
		pending = append(pending, q)
		results = append(results, m.Results[st.Query])
	}
	m.Committed = append(m.Committed, pending...)
	return results, nil
}

func (m *MockDriver) BuildIndices(ctx context.Context) error {
	return nil
}

func (m *MockDriver) Close(ctx context.Context) error {
	return nil
}

func (m *MockDriver) queries(query string) []executedQuery {
	var out []executedQuery
	for _, q := range m.Executed {
		if q.Query == query {
			out = append(out, q)
		}
	}
	return out
}

func singleRecord(keys []string, values ...any) neo4j.EagerResult {
	return neo4j.EagerResult{
		Keys:    keys,
		Records: []*neo4j.Record{{Keys: keys, Values: values}},
	}
}
