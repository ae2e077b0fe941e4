//go:build integration

package store

import (
	"context"
	"testing"

	tcpg "github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"
)

// startTestStore spins up a postgres testcontainer, applies migrations
// and seeds a few courses.
func startTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	container, err := tcpg.Run(ctx, "postgres:16-alpine",
		tcpg.WithDatabase("swaakon_test"),
		tcpg.WithUsername("test"),
		tcpg.WithPassword("test"),
		tcpg.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() { container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("pg connection string: %v", err)
	}

	s, err := New(dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(s.Close)

	if err := s.Migrate(ctx, "../../migrations"); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	seed := []struct {
		code, name, credits, embedding string
	}{
		{"GRA6834", "Strategisk ledelse", "75", "[1,0,0]"},
		{"EXC2910", "Mikroøkonomi", "7.5", "[0,1,0]"},
		{"MAN5001", "Prosjektledelse", "15 SP", ""},
	}
	for _, row := range seed {
		var emb any
		if row.embedding != "" {
			emb = row.embedding
		}
		_, err := s.db.Exec(ctx, `
			INSERT INTO courses (code, name, credits, embedding)
			VALUES ($1, $2, $3, $4)`,
			row.code, row.name, row.credits, emb)
		if err != nil {
			t.Fatalf("seed %s: %v", row.code, err)
		}
	}
	return s
}

func TestListEmbedded(t *testing.T) {
	s := startTestStore(t)
	ctx := context.Background()

	courses, err := s.ListEmbedded(ctx)
	if err != nil {
		t.Fatalf("ListEmbedded: %v", err)
	}
	if len(courses) != 2 {
		t.Fatalf("got %d courses, want 2 (the row without embedding is excluded)", len(courses))
	}
	for _, c := range courses {
		if len(c.Embedding) != 3 {
			t.Errorf("%s: embedding length %d, want 3", c.Code, len(c.Embedding))
		}
	}
}

func TestUpdateEmbeddingRoundTrip(t *testing.T) {
	s := startTestStore(t)
	ctx := context.Background()

	if err := s.UpdateEmbedding(ctx, "MAN5001", []float32{0.5, 0.5, 0}, "test-model"); err != nil {
		t.Fatalf("UpdateEmbedding: %v", err)
	}

	c, err := s.GetCourse(ctx, "MAN5001")
	if err != nil {
		t.Fatalf("GetCourse: %v", err)
	}
	if len(c.Embedding) != 3 || c.Embedding[0] != 0.5 {
		t.Errorf("round-tripped embedding = %v", c.Embedding)
	}

	missing, err := s.ListMissingEmbedding(ctx)
	if err != nil {
		t.Fatalf("ListMissingEmbedding: %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("no course should be missing an embedding now, got %d", len(missing))
	}
}

func TestUpdateEmbedding_UnknownCourse(t *testing.T) {
	s := startTestStore(t)
	if err := s.UpdateEmbedding(context.Background(), "NOPE", []float32{1}, "m"); err == nil {
		t.Fatal("updating an unknown course must fail")
	}
}

func TestSearchCourses(t *testing.T) {
	s := startTestStore(t)
	ctx := context.Background()

	courses, err := s.SearchCourses(ctx, "ledelse")
	if err != nil {
		t.Fatalf("SearchCourses: %v", err)
	}
	if len(courses) != 2 {
		t.Fatalf("got %d courses, want 2", len(courses))
	}

	none, err := s.SearchCourses(ctx, "finnesikke")
	if err != nil {
		t.Fatalf("SearchCourses: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("got %d courses, want 0", len(none))
	}
}
