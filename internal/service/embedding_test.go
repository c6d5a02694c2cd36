package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func embeddingTestServer(t *testing.T, tasks *[]string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Task  string   `json:"task"`
			Input []string `json:"input"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("request body is not JSON: %v", err)
		}
		*tasks = append(*tasks, req.Task)

		data := make([]map[string]interface{}, len(req.Input))
		for i := range req.Input {
			data[i] = map[string]interface{}{
				"embedding": []float32{0.1, 0.2},
				"index":     i,
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
	}))
}

func TestEmbedBatchUsesPassageTask(t *testing.T) {
	var tasks []string
	server := embeddingTestServer(t, &tasks)
	defer server.Close()

	svc := NewEmbeddingService(&EmbeddingConfig{Model: "test-model", Endpoint: server.URL})

	vectors, err := svc.EmbedBatch(context.Background(), []string{"Likes pizza", "Enjoys hiking"})
	if err != nil {
		t.Fatalf("EmbedBatch returned error: %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("vectors: got %d, want 2", len(vectors))
	}
	if len(tasks) != 1 || tasks[0] != "retrieval.passage" {
		t.Errorf("task: got %v, want [retrieval.passage]", tasks)
	}
}

func TestEmbedQueryUsesQueryTask(t *testing.T) {
	var tasks []string
	server := embeddingTestServer(t, &tasks)
	defer server.Close()

	svc := NewEmbeddingService(&EmbeddingConfig{Model: "test-model", Endpoint: server.URL})

	vector, err := svc.EmbedQuery(context.Background(), "what food does the user like")
	if err != nil {
		t.Fatalf("EmbedQuery returned error: %v", err)
	}
	if len(vector) == 0 {
		t.Fatal("expected a non-empty vector")
	}
	if len(tasks) != 1 || tasks[0] != "retrieval.query" {
		t.Errorf("task: got %v, want [retrieval.query]", tasks)
	}
}
