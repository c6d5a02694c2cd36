package repository

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

const defaultVectorDimension = 1024

// MemoryIndexConfig holds configuration for the qdrant-backed memory index.
type MemoryIndexConfig struct {
	Host            string
	Port            int
	Collection      string
	APIKey          string // Qdrant Cloud API key (enables TLS automatically)
	UseTLS          bool   // explicitly enable TLS without an API key
	VectorDimension int
}

// apiKeyInterceptor creates a unary interceptor that adds the API key to metadata
func apiKeyInterceptor(apiKey string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", apiKey)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// MemoryIndex stores fact embeddings in qdrant for semantic recall. The
// downstream record store stays authoritative; this index is derived data.
type MemoryIndex struct {
	conn            *grpc.ClientConn
	pointsClient    pb.PointsClient
	collectClient   pb.CollectionsClient
	collectionName  string
	vectorDimension int
}

// NewMemoryIndex connects to qdrant. Supports both local instances
// (insecure) and Qdrant Cloud (TLS + API key).
func NewMemoryIndex(cfg *MemoryIndexConfig) (*MemoryIndex, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	vectorDimension := cfg.VectorDimension
	if vectorDimension <= 0 {
		vectorDimension = defaultVectorDimension
	}

	var opts []grpc.DialOption

	useTLS := cfg.UseTLS || cfg.APIKey != ""
	if useTLS {
		creds := credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS13})
		opts = append(opts, grpc.WithTransportCredentials(creds))
		if cfg.APIKey != "" {
			opts = append(opts, grpc.WithUnaryInterceptor(apiKeyInterceptor(cfg.APIKey)))
		}
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	return &MemoryIndex{
		conn:            conn,
		pointsClient:    pb.NewPointsClient(conn),
		collectClient:   pb.NewCollectionsClient(conn),
		collectionName:  cfg.Collection,
		vectorDimension: vectorDimension,
	}, nil
}

// Close closes the gRPC connection
func (m *MemoryIndex) Close() error {
	return m.conn.Close()
}

// Ping verifies the index collection is reachable.
func (m *MemoryIndex) Ping(ctx context.Context) error {
	_, err := m.collectClient.Get(ctx, &pb.GetCollectionInfoRequest{
		CollectionName: m.collectionName,
	})
	return err
}

// EnsureCollection creates the collection if it doesn't exist
func (m *MemoryIndex) EnsureCollection(ctx context.Context) error {
	_, err := m.collectClient.Get(ctx, &pb.GetCollectionInfoRequest{
		CollectionName: m.collectionName,
	})
	if err == nil {
		return nil
	}

	_, err = m.collectClient.Create(ctx, &pb.CreateCollection{
		CollectionName: m.collectionName,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(m.vectorDimension),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return nil
}

// FactPayload is the payload stored with each indexed fact.
type FactPayload struct {
	MemoryID   string  `json:"memory_id"`
	Namespace  string  `json:"namespace"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Content    string  `json:"content"`
	StrategyID string  `json:"strategy_id"`
}

// IndexEntry pairs a fact payload with its embedding.
type IndexEntry struct {
	ID      string
	Vector  []float32
	Payload FactPayload
}

// UpsertBatch inserts or updates a batch of fact entries in one call.
func (m *MemoryIndex) UpsertBatch(ctx context.Context, entries []IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, 0, len(entries))
	for _, entry := range entries {
		uid, err := uuid.Parse(entry.ID)
		if err != nil {
			return fmt.Errorf("invalid point ID: %w", err)
		}

		points = append(points, &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: uid.String()},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: entry.Vector},
				},
			},
			Payload: map[string]*pb.Value{
				"memory_id":   {Kind: &pb.Value_StringValue{StringValue: entry.Payload.MemoryID}},
				"namespace":   {Kind: &pb.Value_StringValue{StringValue: entry.Payload.Namespace}},
				"category":    {Kind: &pb.Value_StringValue{StringValue: entry.Payload.Category}},
				"confidence":  {Kind: &pb.Value_DoubleValue{DoubleValue: entry.Payload.Confidence}},
				"content":     {Kind: &pb.Value_StringValue{StringValue: entry.Payload.Content}},
				"strategy_id": {Kind: &pb.Value_StringValue{StringValue: entry.Payload.StrategyID}},
			},
		})
	}

	_, err := m.pointsClient.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: m.collectionName,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	return nil
}

// SearchResult represents a recall hit from the index.
type SearchResult struct {
	ID      string
	Score   float32
	Payload *FactPayload
}

// SearchFilters defines optional filters for recall.
type SearchFilters struct {
	MemoryID  *string
	Namespace *string
	Category  *string
}

// Search performs a vector similarity search over indexed facts.
func (m *MemoryIndex) Search(ctx context.Context, vector []float32, topK int, filters *SearchFilters) ([]SearchResult, error) {
	req := &pb.SearchPoints{
		CollectionName: m.collectionName,
		Vector:         vector,
		Limit:          uint64(topK),
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
	}

	if filters != nil {
		req.Filter = buildFilter(filters)
	}

	resp, err := m.pointsClient.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]SearchResult, len(resp.Result))
	for i, scored := range resp.Result {
		results[i] = SearchResult{
			ID:      scored.Id.GetUuid(),
			Score:   scored.Score,
			Payload: parsePayload(scored.Payload),
		}
	}

	return results, nil
}

func buildFilter(filters *SearchFilters) *pb.Filter {
	var conditions []*pb.Condition

	addKeyword := func(key string, value *string) {
		if value == nil || *value == "" {
			return
		}
		conditions = append(conditions, &pb.Condition{
			ConditionOneOf: &pb.Condition_Field{
				Field: &pb.FieldCondition{
					Key: key,
					Match: &pb.Match{
						MatchValue: &pb.Match_Keyword{Keyword: *value},
					},
				},
			},
		})
	}

	addKeyword("memory_id", filters.MemoryID)
	addKeyword("namespace", filters.Namespace)
	addKeyword("category", filters.Category)

	if len(conditions) == 0 {
		return nil
	}

	return &pb.Filter{Must: conditions}
}

func parsePayload(payload map[string]*pb.Value) *FactPayload {
	if payload == nil {
		return nil
	}

	p := &FactPayload{}
	if v, ok := payload["memory_id"]; ok {
		p.MemoryID = v.GetStringValue()
	}
	if v, ok := payload["namespace"]; ok {
		p.Namespace = v.GetStringValue()
	}
	if v, ok := payload["category"]; ok {
		p.Category = v.GetStringValue()
	}
	if v, ok := payload["confidence"]; ok {
		p.Confidence = v.GetDoubleValue()
	}
	if v, ok := payload["content"]; ok {
		p.Content = v.GetStringValue()
	}
	if v, ok := payload["strategy_id"]; ok {
		p.StrategyID = v.GetStringValue()
	}

	return p
}
