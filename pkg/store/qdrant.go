package store

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"github.com/xhad/docqa/internal/models"
	"github.com/xhad/docqa/pkg/logger"
)

const (
	defaultQdrantPort = 6334

	payloadID         = "record_id"
	payloadText       = "text"
	payloadFilename   = "filename"
	payloadDocumentID = "document_id"
	payloadChunkIndex = "chunk_index"
)

type QdrantConfig struct {
	Addr       string // host:port or http(s)://host:port of the gRPC endpoint
	APIKey     string
	Collection string
	VectorDim  int
	Logger     *slog.Logger
}

type QdrantStore struct {
	config QdrantConfig
	client *qdrant.Client
	logger *slog.Logger
}

func NewQdrant(ctx context.Context, config QdrantConfig) (*QdrantStore, error) {
	if config.Collection == "" {
		config.Collection = "doc-qa"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768
	}
	if config.Logger == nil {
		config.Logger = logger.Nop()
	}

	host, port, useTLS, err := parseQdrantAddr(config.Addr)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: config.APIKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	qs := &QdrantStore{
		config: config,
		client: client,
		logger: config.Logger,
	}

	if err := qs.initialize(ctx); err != nil {
		client.Close()
		return nil, err
	}

	qs.logger.Info("qdrant store initialized", "collection", config.Collection, "dimensions", config.VectorDim)

	return qs, nil
}

func (qs *QdrantStore) initialize(ctx context.Context) error {
	exists, err := qs.client.CollectionExists(ctx, qs.config.Collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return nil
	}

	err = qs.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: qs.config.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(qs.config.VectorDim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	_, err = qs.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: qs.config.Collection,
		FieldName:      payloadDocumentID,
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("failed to create payload index: %w", err)
	}

	return nil
}

func (qs *QdrantStore) Upsert(ctx context.Context, records []models.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(records))
	for _, r := range records {
		if err := checkDimension(r.Values, qs.config.VectorDim); err != nil {
			return fmt.Errorf("record %s: %w", r.ID, err)
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(pointID(r.ID)),
			Vectors: qdrant.NewVectors(r.Values...),
			Payload: toPayload(r),
		})
	}

	_, err := qs.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: qs.config.Collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	qs.logger.Debug("upserted points", "count", len(points))

	return nil
}

func (qs *QdrantStore) Query(ctx context.Context, embedding []float32, topK int, documentID string) ([]models.Match, error) {
	if topK <= 0 {
		topK = 3
	}

	req := &qdrant.QueryPoints{
		CollectionName: qs.config.Collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if documentID != "" {
		req.Filter = &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch(payloadDocumentID, documentID),
			},
		}
	}

	points, err := qs.client.Query(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to query points: %w", err)
	}

	matches := make([]models.Match, 0, len(points))
	for _, p := range points {
		matches = append(matches, fromPayload(p.GetPayload(), p.GetScore()))
	}
	return matches, nil
}

func (qs *QdrantStore) Close() error {
	return qs.client.Close()
}

// pointID maps a record id to a stable UUID; qdrant only accepts UUIDs or integers.
func pointID(recordID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(recordID)).String()
}

func toPayload(r models.VectorRecord) map[string]*qdrant.Value {
	return qdrant.NewValueMap(map[string]any{
		payloadID:         r.ID,
		payloadText:       r.Metadata.Text,
		payloadFilename:   r.Metadata.Filename,
		payloadDocumentID: r.Metadata.DocumentID,
		payloadChunkIndex: int64(r.Metadata.ChunkIndex),
	})
}

func fromPayload(payload map[string]*qdrant.Value, score float32) models.Match {
	return models.Match{
		ID:    payload[payloadID].GetStringValue(),
		Score: score,
		Metadata: models.RecordMetadata{
			Text:       payload[payloadText].GetStringValue(),
			Filename:   payload[payloadFilename].GetStringValue(),
			DocumentID: payload[payloadDocumentID].GetStringValue(),
			ChunkIndex: int(payload[payloadChunkIndex].GetIntegerValue()),
		},
	}
}

func parseQdrantAddr(addr string) (host string, port int, useTLS bool, err error) {
	if addr == "" {
		return "localhost", defaultQdrantPort, false, nil
	}

	if strings.Contains(addr, "://") {
		u, err := url.Parse(addr)
		if err != nil {
			return "", 0, false, fmt.Errorf("invalid qdrant address %q: %w", addr, err)
		}
		useTLS = u.Scheme == "https"
		addr = u.Host
	}

	h, p, splitErr := net.SplitHostPort(addr)
	if splitErr != nil {
		return addr, defaultQdrantPort, useTLS, nil
	}

	port, err = strconv.Atoi(p)
	if err != nil {
		return "", 0, false, fmt.Errorf("invalid qdrant port %q", p)
	}
	return h, port, useTLS, nil
}
