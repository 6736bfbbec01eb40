package roverpanel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/youssefsiam38/roverpanel/internal/testutil"
	"github.com/youssefsiam38/roverpanel/storage"
)

// failingStore implements storage.Store and fails every write.
type failingStore struct {
	storage.Store
}

func (failingStore) Set(ctx context.Context, key, value string) error {
	return errors.New("disk full")
}

func testConfig(fake *testutil.FakeAPI) *Config {
	return &Config{
		APIBase:         fake.URL(),
		PlaybackDelay:   time.Millisecond,
		RefreshInterval: 100 * time.Millisecond,
		RequestTimeout:  2 * time.Second,
		Timezone:        "America/Mexico_City",
	}
}

func newTestControl(t *testing.T, fake *testutil.FakeAPI, mutate ...func(*Config)) *Control {
	t.Helper()

	cfg := testConfig(fake)
	for _, fn := range mutate {
		fn(cfg)
	}
	c, err := NewControl(context.Background(), cfg, storage.NewMemoryStore())
	if err != nil {
		t.Fatalf("NewControl() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func newTestMonitor(t *testing.T, fake *testutil.FakeAPI) *Monitor {
	t.Helper()

	m, err := NewMonitor(context.Background(), testConfig(fake), storage.NewMemoryStore())
	if err != nil {
		t.Fatalf("NewMonitor() error = %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}
