package metrics

import (
	"context"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ja2ui0/highball/internal/domain"
	"github.com/ja2ui0/highball/internal/http"
)

func finishedRecord(status domain.RunStatus) *domain.ExecutionRecord {
	record := domain.NewExecutionRecord("photos")
	record.AddResult(domain.OpResult{Kind: domain.OpBackup, ExitCode: 0})
	record.AddResult(domain.OpResult{Kind: domain.OpMaintenance, ExitCode: 1, BestEffort: true})
	record.Complete(status)
	return record
}

func TestPushgatewayClient_Push(t *testing.T) {
	var path, body string
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		path = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.WriteHeader(nethttp.StatusOK)
	}))
	defer server.Close()

	client := NewPushgatewayClient(server.URL, WithHTTPClient(http.NewClient()))
	require.NoError(t, client.Push(context.Background(), finishedRecord(domain.RunSucceeded)))

	assert.Equal(t, "/metrics/job/highball/backup_job/photos", path)
	assert.Contains(t, body, "highball_run_success 1")
	assert.Contains(t, body, "highball_run_duration_seconds")
	assert.Contains(t, body, `highball_operation_exit_code{op="backup"} 0`)
	assert.Contains(t, body, `highball_operation_exit_code{op="maintenance"} 1`)
	assert.Contains(t, body, "highball_info")
}

func TestPushgatewayClient_Push_FailedRun(t *testing.T) {
	var body string
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.WriteHeader(nethttp.StatusOK)
	}))
	defer server.Close()

	client := NewPushgatewayClient(server.URL, WithHTTPClient(http.NewClient()))
	require.NoError(t, client.Push(context.Background(), finishedRecord(domain.RunFailed)))

	assert.Contains(t, body, "highball_run_success 0")
}

func TestPushgatewayClient_Push_ServerError(t *testing.T) {
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.WriteHeader(nethttp.StatusBadRequest)
	}))
	defer server.Close()

	client := NewPushgatewayClient(server.URL, WithHTTPClient(http.NewClient()))
	err := client.Push(context.Background(), finishedRecord(domain.RunSucceeded))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestPushgatewayClient_TrimsTrailingSlash(t *testing.T) {
	var path string
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		path = r.URL.Path
		w.WriteHeader(nethttp.StatusOK)
	}))
	defer server.Close()

	client := NewPushgatewayClient(server.URL+"/", WithHTTPClient(http.NewClient()))
	require.NoError(t, client.Push(context.Background(), finishedRecord(domain.RunSucceeded)))
	assert.Equal(t, "/metrics/job/highball/backup_job/photos", path)
}
