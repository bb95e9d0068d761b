package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvannucci/paperbroker/internal/domain"
)

// blobFake keeps uploaded objects in a map so tests can inspect them.
type blobFake struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newBlobFake() *blobFake {
	return &blobFake{objects: make(map[string][]byte)}
}

var (
	_ domain.BlobWriter = (*blobFake)(nil)
	_ domain.BlobReader = (*blobFake)(nil)
)

func (b *blobFake) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[path] = buf
	return nil
}

func (b *blobFake) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf, ok := b.objects[path]
	if !ok {
		return nil, fmt.Errorf("blob %s: %w", path, domain.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(buf)), nil
}

func (b *blobFake) List(ctx context.Context, prefix string) ([]domain.BlobInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var infos []domain.BlobInfo
	for path, buf := range b.objects {
		if strings.HasPrefix(path, prefix) {
			infos = append(infos, domain.BlobInfo{Path: path, Size: int64(len(buf))})
		}
	}
	return infos, nil
}

func (b *blobFake) Exists(ctx context.Context, path string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[path]
	return ok, nil
}

func TestExportLedger(t *testing.T) {
	f := newFixture(t)
	trades := f.trades()
	blob := newBlobFake()
	svc := NewExportService(f.store.Ledger(), blob, blob, f.logger)
	acct := f.newAccount(t, "ada", "Main")

	_, err := trades.Deposit(ctx(), acct.ID, 1000, "")
	require.NoError(t, err)
	_, err = trades.Withdraw(ctx(), acct.ID, 250, "")
	require.NoError(t, err)

	cutoff := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).AddDate(10, 0, 0)
	path, count, err := svc.ExportLedger(ctx(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, "exports/ledger/2035-06.jsonl", path)
	assert.EqualValues(t, 2, count)

	rc, err := blob.Get(ctx(), path)
	require.NoError(t, err)
	defer rc.Close()

	// One JSON object per line, oldest first.
	var events []domain.LedgerEvent
	scanner := bufio.NewScanner(rc)
	for scanner.Scan() {
		var ev domain.LedgerEvent
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
		events = append(events, ev)
	}
	require.NoError(t, scanner.Err())
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventCashDeposit, events[0].Kind)
	assert.Equal(t, domain.EventCashWithdraw, events[1].Kind)

	t.Run("list exports", func(t *testing.T) {
		infos, err := svc.ListExports(ctx())
		require.NoError(t, err)
		require.Len(t, infos, 1)
		assert.Equal(t, path, infos[0].Path)
		assert.Positive(t, infos[0].Size)
	})
}

func TestExportLedgerEmpty(t *testing.T) {
	f := newFixture(t)
	blob := newBlobFake()
	svc := NewExportService(f.store.Ledger(), blob, blob, f.logger)

	path, count, err := svc.ExportLedger(ctx(), time.Now().UTC())
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Zero(t, count)
	assert.Empty(t, blob.objects, "no object is written for an empty ledger")
}
