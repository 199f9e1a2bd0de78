package pkg

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arangodb/go-driver"
	"github.com/arangodb/go-driver/http"
	"github.com/rs/zerolog"

	"golang.org/x/net/context"
)

const (
	runCollection      = "Runs"
	snapshotCollection = "CountrySnapshots"
	edgeCollection     = "SnapshotEdges"
)

var ignoreDuplicates = &driver.ImportDocumentOptions{OnDuplicate: driver.ImportOnDuplicateIgnore}

type ArangoDB struct {
	db     driver.Database
	logger zerolog.Logger
}

type SnapshotEdge struct {
	Key        string `json:"_key"`
	From       string `json:"_from"`
	To         string `json:"_to"`
	Collection string `json:"collection"`
}

func ConnectToArango(cfg ArangoConfig, logger zerolog.Logger) (*ArangoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	caCertificate, err := base64.StdEncoding.DecodeString(cfg.Certificate)
	if err != nil {
		return nil, fmt.Errorf("failed decoding certificate: %w", err)
	}

	tlsConfig := &tls.Config{}
	certpool := x509.NewCertPool()
	if success := certpool.AppendCertsFromPEM(caCertificate); !success {
		return nil, errors.New("invalid certificate")
	}
	tlsConfig.RootCAs = certpool

	conn, err := http.NewConnection(http.ConnectionConfig{
		Endpoints: []string{cfg.Endpoint},
		TLSConfig: tlsConfig,
	})
	if err != nil {
		return nil, fmt.Errorf("failed creating HTTP connection: %w", err)
	}

	c, err := driver.NewClient(driver.ClientConfig{
		Connection:     conn,
		Authentication: driver.BasicAuthentication(cfg.Username, cfg.Password),
	})
	if err != nil {
		return nil, fmt.Errorf("failed creating driver connection: %w", err)
	}

	db, err := c.Database(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed getting database %q: %w", cfg.Database, err)
	}

	return &ArangoDB{db: db, logger: logger.With().Str("prefix", "arango").Logger()}, nil
}

// ArchiveCountries records runDate as a new run linked to the previous day,
// then stores the countries that are new or whose cases changed.
func (graph *ArangoDB) ArchiveCountries(
	ctx context.Context,
	runDate string,
	countries []CountryMetrics,
) error {
	date, err := time.Parse("2006-01-02", runDate)
	if err != nil {
		return fmt.Errorf("invalid run date %q: %w", runDate, err)
	}
	prevRunDate := date.AddDate(0, 0, -1).Format("2006-01-02")

	prevRun, err := graph.GetSnapshotNodes(ctx, prevRunDate)
	if err != nil {
		graph.logger.Err(err).Str("previous_run", prevRunDate).Msg("Failed to read previous run")
		return fmt.Errorf("failed to read previous run %s: %w", prevRunDate, err)
	}
	hasPrevRun := len(prevRun) > 0
	prevRunNodes, err := GroupByKey(prevRun, "CountryCode")
	if err != nil {
		return fmt.Errorf("unknown format of previous run nodes: %w", err)
	}

	if err := graph.CreateNewRunNode(ctx, runDate); err != nil {
		return fmt.Errorf("failed to create new run node: %w", err)
	}
	if hasPrevRun {
		if err := graph.CreateEdgeBetweenRuns(ctx, prevRunDate, runDate); err != nil {
			return fmt.Errorf("failed to create edge between runs: %w", err)
		}
	}

	nodes, err := compareToPrevRun(snapshotsByCode(countries), runDate, prevRunNodes)
	if err != nil {
		return err
	}

	if err := graph.HandleNewCountries(ctx, runDate, nodes.created); err != nil {
		return err
	}
	graph.logger.Info().Int("nodes", len(nodes.created)).Msg("Created snapshots for new countries")

	if err := graph.HandleNewEdges(ctx, runDate, nodes.unchanged); err != nil {
		return err
	}
	graph.logger.Info().Int("edges", len(nodes.unchanged)).Msg("Linked unchanged countries to run")

	if err := graph.HandleChangedCountries(ctx, runDate, nodes.changed); err != nil {
		return err
	}
	graph.logger.Info().Int("nodes", len(nodes.changed)).Msg("Created snapshots for changed countries")
	return nil
}

func (graph *ArangoDB) CreateNewRunNode(ctx context.Context, date string) error {
	cursor, err := graph.db.Query(
		driver.WithQueryCount(ctx),
		"UPSERT { _key: @key } INSERT { _key: @key, createdAt: @createdAt, collection: 'Runs' } UPDATE {} IN Runs",
		map[string]interface{}{
			"key":       date,
			"createdAt": time.Now().Unix(),
		},
	)
	if err != nil {
		return err
	}
	return cursor.Close()
}

func (graph *ArangoDB) CreateEdgeBetweenRuns(ctx context.Context, previousRun, currentRun string) error {
	cursor, err := graph.db.Query(
		driver.WithQueryCount(ctx),
		"UPSERT { _from: @from, _to: @to } INSERT { _from: @from, _to: @to, collection: @collection } UPDATE {} IN SnapshotEdges",
		map[string]interface{}{
			"from":       fmt.Sprintf("%s/%s", runCollection, previousRun),
			"to":         fmt.Sprintf("%s/%s", runCollection, currentRun),
			"collection": edgeCollection,
		},
	)
	if err != nil {
		return err
	}
	return cursor.Close()
}

func (graph *ArangoDB) GetSnapshotNodes(
	ctx context.Context,
	date string,
) (nodes []map[string]interface{}, err error) {
	cursor, err := graph.db.Query(
		driver.WithQueryCount(ctx),
		"FOR v IN 1..1 ANY @runDate GRAPH 'runs-graph' FILTER v.collection == @collection RETURN v",
		map[string]interface{}{
			"runDate":    fmt.Sprintf("%s/%s", runCollection, date),
			"collection": snapshotCollection,
		},
	)
	if err != nil {
		return nodes, fmt.Errorf("failed querying database: %w", err)
	}
	defer cursor.Close() // nolint: errcheck

	for {
		var node map[string]interface{}
		_, err := cursor.ReadDocument(ctx, &node)
		if driver.IsNoMoreDocuments(err) {
			break
		} else if err != nil {
			return nodes, fmt.Errorf("failed reading document: %w", err)
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func (graph *ArangoDB) HandleNewCountries(ctx context.Context, date string, nodes []interface{}) error {
	if len(nodes) == 0 {
		return nil
	}
	ids, err := graph.createSnapshotDocuments(ctx, nodes)
	if err != nil {
		return fmt.Errorf("failed creating snapshot documents: %w", err)
	}
	return graph.HandleNewEdges(ctx, date, ids)
}

func (graph *ArangoDB) HandleChangedCountries(ctx context.Context, date string, changedNodes []interface{}) error {
	if len(changedNodes) == 0 {
		return nil
	}
	prevByKey := make(map[string]interface{}, len(changedNodes))
	nodes := make([]interface{}, 0, len(changedNodes))
	for _, node := range changedNodes {
		nodeMap := node.(map[string]interface{})
		if prevID, ok := nodeMap["prevAssetId"]; ok {
			delete(nodeMap, "prevAssetId")
			nodes = append(nodes, nodeMap)
			prevByKey[nodeMap["_key"].(string)] = prevID
		}
	}
	newIDs, err := graph.createSnapshotDocuments(ctx, nodes)
	if err != nil {
		return fmt.Errorf("failed creating snapshot documents: %w", err)
	}

	prevIDs := make([]interface{}, 0, len(nodes))
	for _, node := range nodes {
		prevIDs = append(prevIDs, prevByKey[node.(map[string]interface{})["_key"].(string)])
	}
	if err := graph.HandleNewEdges(ctx, date, newIDs); err != nil {
		return err
	}

	edges := make([]SnapshotEdge, 0, len(newIDs))
	for i, newID := range newIDs {
		edges = append(edges, newSnapshotEdge(prevIDs[i].(string), newID.(string)))
	}
	if err := graph.importEdges(ctx, edges); err != nil {
		graph.logger.Err(err).Interface("new_nodes", newIDs).Interface("prev_nodes", prevIDs).
			Msg("Failed creating edge between old and new nodes")
		return err
	}
	return nil
}

// HandleNewEdges links the run of date to the given snapshot documents.
func (graph *ArangoDB) HandleNewEdges(ctx context.Context, date string, ids []interface{}) error {
	if len(ids) == 0 {
		return nil
	}
	if !strings.HasPrefix(date, runCollection+"/") {
		date = fmt.Sprintf("%s/%s", runCollection, date)
	}
	edges := make([]SnapshotEdge, 0, len(ids))
	for _, id := range ids {
		edges = append(edges, newSnapshotEdge(date, id.(string)))
	}
	if err := graph.importEdges(ctx, edges); err != nil {
		graph.logger.Err(err).Int("documents", len(ids)).Msg("An error occurred while trying to save in edges")
		return err
	}
	return nil
}

func (graph *ArangoDB) importEdges(ctx context.Context, edges []SnapshotEdge) error {
	edgesCollection, err := graph.db.Collection(ctx, edgeCollection)
	if err != nil {
		return fmt.Errorf("failed getting %q collection: %w", edgeCollection, err)
	}
	stats, err := edgesCollection.ImportDocuments(driver.WithQueryCount(ctx), edges, ignoreDuplicates)
	if err != nil {
		return fmt.Errorf("failed importing edges: %w", err)
	}
	graph.logger.Info().Int("expected", len(edges)).Int64("actual", stats.Created).
		Int64("internal_errors", stats.Errors).Msg("Saved edges successfully")
	return nil
}

// createSnapshotDocuments stores the nodes and returns their document ids.
// Keys already present from an earlier attempt of the same run are kept.
func (graph *ArangoDB) createSnapshotDocuments(
	ctx context.Context,
	nodes []interface{},
) ([]interface{}, error) {
	col, err := graph.db.Collection(ctx, snapshotCollection)
	if err != nil {
		return nil, fmt.Errorf("failed getting %q collection: %w", snapshotCollection, err)
	}
	stats, err := col.ImportDocuments(ctx, nodes, ignoreDuplicates)
	if err != nil {
		return nil, err
	}
	graph.logger.Info().Int("expected", len(nodes)).Int64("created", stats.Created).
		Int64("ignored", stats.Ignored).Msg("Saved snapshots")

	ids := make([]interface{}, 0, len(nodes))
	for _, node := range nodes {
		ids = append(ids, snapshotID(node.(map[string]interface{})["_key"].(string)))
	}
	return ids, nil
}
