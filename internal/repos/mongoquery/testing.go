package mongoquery

import (
	"fmt"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/net/context"
)

// TestDatabase connects to the MongoDB server named by DEVCAMPER_TEST_MONGO_URI (default: a local server) and returns
// a fresh database with all indexes. The test is skipped if no server is reachable.
func TestDatabase(t testing.TB) *mongo.Database {
	t.Helper()
	uri := os.Getenv("DEVCAMPER_TEST_MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	client, err := Connect(context.Background(), uri, 2*time.Second)
	if err != nil {
		t.Skip("MongoDB not available, skipping integration tests")
	}
	db := client.Database(fmt.Sprintf("devcamper_test_%d", time.Now().UnixNano()))
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	if err := EnsureIndexes(context.Background(), db); err != nil {
		t.Fatalf("cannot create indexes: %v", err)
	}
	return db
}
