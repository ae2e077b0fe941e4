// Package vectorstore maintains the Qdrant index used for fast semantic
// course search. The exhaustive comparison path does not depend on it;
// the index only serves the global search endpoint and is fed by the
// backfill binary.
package vectorstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// CollectionName holds every embedded course as one point.
const CollectionName = "courses"

// Config holds connection settings for a Qdrant instance.
type Config struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// courseNamespace makes point IDs deterministic per course code, so
// re-running the backfill upserts instead of duplicating.
var courseNamespace = uuid.MustParse("8e6c1f4a-1f0b-4c6a-9f64-1d2ad35c6db1")

// Client wraps gRPC connections to Qdrant's collections and points services.
type Client struct {
	conn        *grpc.ClientConn
	collections pb.CollectionsClient
	points      pb.PointsClient
}

// NewClient dials the Qdrant gRPC endpoint and returns a ready Client.
func NewClient(cfg Config) (*Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect %s: %w", addr, err)
	}
	return &Client{
		conn:        conn,
		collections: pb.NewCollectionsClient(conn),
		points:      pb.NewPointsClient(conn),
	}, nil
}

// EnsureCollection creates the course collection if it does not already exist.
func (c *Client) EnsureCollection(ctx context.Context, dimension uint64) error {
	_, err := c.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: CollectionName})
	if err == nil {
		return nil
	}
	_, err = c.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: CollectionName,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     dimension,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", CollectionName, err)
	}
	return nil
}

// pointID derives the stable point ID for a course code.
func pointID(code string) string {
	return uuid.NewSHA1(courseNamespace, []byte(code)).String()
}

// UpsertCourse inserts or updates one course point.
func (c *Client) UpsertCourse(ctx context.Context, code, name string, vector []float32) error {
	id := pointID(code)
	_, err := c.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: CollectionName,
		Points: []*pb.PointStruct{
			{
				Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: id}},
				Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: vector}}},
				Payload: map[string]*pb.Value{
					"code": {Kind: &pb.Value_StringValue{StringValue: code}},
					"name": {Kind: &pb.Value_StringValue{StringValue: name}},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("upsert course %s: %w", code, err)
	}
	return nil
}

// Hit is one semantic search match.
type Hit struct {
	Code  string  `json:"code"`
	Name  string  `json:"name"`
	Score float32 `json:"score"`
}

// Search returns the top-K nearest courses to the query vector.
func (c *Client) Search(ctx context.Context, vector []float32, topK uint64) ([]Hit, error) {
	resp, err := c.points.Search(ctx, &pb.SearchPoints{
		CollectionName: CollectionName,
		Vector:         vector,
		Limit:          topK,
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", CollectionName, err)
	}
	hits := make([]Hit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, hitFromPoint(r))
	}
	return hits, nil
}

// hitFromPoint decodes one scored point. Points written outside the
// backfill may lack the code/name payload keys.
func hitFromPoint(r *pb.ScoredPoint) Hit {
	hit := Hit{Score: r.Score}
	hit.Code = payloadString(r.Payload, "code")
	hit.Name = payloadString(r.Payload, "name")
	return hit
}

func payloadString(payload map[string]*pb.Value, key string) string {
	p, ok := payload[key]
	if !ok || p == nil {
		return ""
	}
	if v, ok := p.Kind.(*pb.Value_StringValue); ok {
		return v.StringValue
	}
	return ""
}

// Close tears down the underlying gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
