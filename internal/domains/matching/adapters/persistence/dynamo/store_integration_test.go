//go:build integration

package dynamo

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/adapters/storetest"
	"github.com/Apurer/go-gin-donation-matcher/internal/domains/matching/ports"
	platformdynamo "github.com/Apurer/go-gin-donation-matcher/internal/platform/dynamo"
)

func setupDynamoLocal(t *testing.T) (string, func()) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "amazon/dynamodb-local:2.2.1",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"-jar", "DynamoDBLocal.jar", "-inMemory", "-sharedDb"},
			WaitingFor:   wait.ForListeningPort("8000/tcp").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)

	endpoint, err := container.Endpoint(ctx, "http")
	require.NoError(t, err)
	return endpoint, func() { container.Terminate(ctx) }
}

func TestStore_Contract(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	endpoint, cleanup := setupDynamoLocal(t)
	defer cleanup()

	ctx := context.Background()
	client, err := platformdynamo.NewClient(ctx, platformdynamo.Config{
		Region:          "us-east-1",
		Endpoint:        endpoint,
		AccessKeyID:     "local",
		SecretAccessKey: "local",
	})
	require.NoError(t, err)

	var run atomic.Int32
	storetest.Run(t, func(t *testing.T) ports.Store {
		prefix := fmt.Sprintf("contract-%d-", run.Add(1))
		require.NoError(t, EnsureTables(ctx, client, prefix))
		return NewStore(client, prefix)
	})
}
