package docker

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/docker/docker/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/ledgerctl/internal/domain"
)

func newRuntimeForHTTPServer(t *testing.T, server *httptest.Server, opts ...Option) *Runtime {
	t.Helper()

	host := strings.TrimPrefix(server.URL, "http://")
	cli, err := client.NewClientWithOpts(client.WithHost("tcp://"+host), client.WithVersion("1.41"), client.WithHTTPClient(server.Client()))
	require.NoError(t, err)

	return NewRuntimeWithClient(cli, opts...)
}

func writeNotFound(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(`{"message":"` + msg + `"}`))
}

const inspectRunningNode = `{
	"Id":"abc123",
	"Name":"/ccf-node",
	"RestartCount":2,
	"State":{"Status":"running","Running":true,"ExitCode":0,"StartedAt":"2026-05-01T11:00:00.123456789Z","FinishedAt":"0001-01-01T00:00:00Z"},
	"HostConfig":{"RestartPolicy":{"Name":"on-failure","MaximumRetryCount":5}},
	"Config":{"Image":"ccf/node:5.0","Tty":false,"Labels":{"ledgerctl.restart.delay":"10s"}},
	"NetworkSettings":{"Ports":{"8000/tcp":[{"HostIp":"0.0.0.0","HostPort":"8000"}],"9000/tcp":null}}
}`

func TestRuntime_InspectContainer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1.41/containers/ccf-node/json", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(inspectRunningNode))
	}))
	defer server.Close()

	runtime := newRuntimeForHTTPServer(t, server)
	info, err := runtime.InspectContainer(context.Background(), "ccf-node")
	require.NoError(t, err)

	assert.Equal(t, "abc123", info.ID)
	assert.Equal(t, "ccf-node", info.Name)
	assert.Equal(t, "ccf/node:5.0", info.Image)
	assert.True(t, info.Running)
	assert.Equal(t, 2, info.RestartCount)
	assert.Equal(t, domain.RestartPolicy{Mode: domain.RestartModeOnFailure, MaxRetries: 5, Delay: 10 * time.Second}, info.Policy)
	assert.Equal(t, time.Date(2026, 5, 1, 11, 0, 0, 123456789, time.UTC), info.StartedAt)
	assert.True(t, info.FinishedAt.IsZero())
	assert.Equal(t, []domain.PortBinding{{ContainerPort: "8000/tcp", HostIP: "0.0.0.0", HostPort: "8000"}}, info.Ports)
}

func TestRuntime_InspectContainer_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeNotFound(w, "No such container: ccf-node")
	}))
	defer server.Close()

	runtime := newRuntimeForHTTPServer(t, server)
	_, err := runtime.InspectContainer(context.Background(), "ccf-node")

	assert.ErrorIs(t, err, domain.ErrContainerNotFound)
	assert.True(t, domain.IsNotFound(err))
}

func TestRuntime_StopContainer_SendsTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1.41/containers/ccf-node/stop", r.URL.Path)
		assert.Equal(t, "45", r.URL.Query().Get("t"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	runtime := newRuntimeForHTTPServer(t, server)
	require.NoError(t, runtime.StopContainer(context.Background(), "ccf-node", 45*time.Second))
}

func TestRuntime_UpdateRestartPolicy(t *testing.T) {
	tests := []struct {
		policy  domain.RestartPolicy
		name    string
		retries int
	}{
		{policy: domain.RestartNone(), name: "no"},
		{policy: domain.RestartUnlessStopped(), name: "unless-stopped"},
		{policy: domain.RestartOnFailure(3, time.Second), name: "on-failure", retries: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/v1.41/containers/ccf-node/update", r.URL.Path)

				var body struct {
					RestartPolicy struct {
						Name              string
						MaximumRetryCount int
					}
				}
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, tt.name, body.RestartPolicy.Name)
				assert.Equal(t, tt.retries, body.RestartPolicy.MaximumRetryCount)

				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"Warnings":[]}`))
			}))
			defer server.Close()

			runtime := newRuntimeForHTTPServer(t, server)
			require.NoError(t, runtime.UpdateRestartPolicy(context.Background(), "ccf-node", tt.policy))
		})
	}
}

func TestRuntime_RemoveContainer_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/v1.41/containers/ccf-node", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("force"))
		writeNotFound(w, "No such container: ccf-node")
	}))
	defer server.Close()

	runtime := newRuntimeForHTTPServer(t, server)
	err := runtime.RemoveContainer(context.Background(), "ccf-node")
	assert.ErrorIs(t, err, domain.ErrContainerNotFound)
}

func TestRuntime_Volumes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v1.41/volumes/ccf-node-vol":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"Name":"ccf-node-vol","Driver":"local"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/v1.41/volumes/other-vol":
			writeNotFound(w, "no such volume")
		case r.Method == http.MethodDelete && r.URL.Path == "/v1.41/volumes/ccf-node-vol":
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodDelete && r.URL.Path == "/v1.41/volumes/other-vol":
			writeNotFound(w, "no such volume")
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	runtime := newRuntimeForHTTPServer(t, server)
	ctx := context.Background()

	exists, err := runtime.VolumeExists(ctx, "ccf-node-vol")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = runtime.VolumeExists(ctx, "other-vol")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, runtime.RemoveVolume(ctx, "ccf-node-vol"))
	assert.ErrorIs(t, runtime.RemoveVolume(ctx, "other-vol"), domain.ErrVolumeNotFound)
}

type requestLog struct {
	mu    sync.Mutex
	items []string
}

func (l *requestLog) add(r *http.Request) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, r.Method+" "+r.URL.Path)
}

func (l *requestLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.items...)
}

func TestRuntime_RunHelper_MountsAndCleanup(t *testing.T) {
	requests := &requestLog{}
	var created struct {
		Image      string
		Cmd        []string
		Env        []string
		HostConfig struct {
			NetworkMode string
			Mounts      []struct {
				Type     string
				Source   string
				Target   string
				ReadOnly bool
			}
		}
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.add(r)
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.URL.Path == "/v1.41/volumes/ccf-node-vol":
			_, _ = w.Write([]byte(`{"Name":"ccf-node-vol"}`))
		case r.URL.Path == "/v1.41/containers/create":
			assert.True(t, strings.HasPrefix(r.URL.Query().Get("name"), "ledgerctl-helper-"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&created))
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"Id":"helper1","Warnings":[]}`))
		case r.URL.Path == "/v1.41/containers/helper1/wait":
			_, _ = w.Write([]byte(`{"StatusCode":0}`))
		case r.URL.Path == "/v1.41/containers/helper1/start":
			w.WriteHeader(http.StatusNoContent)
		case r.URL.Path == "/v1.41/containers/helper1/logs":
			w.Header().Set("Content-Type", "application/vnd.docker.raw-stream")
		case r.Method == http.MethodDelete && r.URL.Path == "/v1.41/containers/helper1":
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	runtime := newRuntimeForHTTPServer(t, server, WithHelperImage("busybox:1.36"))
	result, err := runtime.RunHelper(context.Background(), domain.HelperJob{
		Kind:        domain.HelperArchive,
		Volume:      "ccf-node-vol",
		ReadOnly:    true,
		ArchiveDir:  "/srv/backups",
		ArchiveName: "ccf-node-backup-20260501-120000.tar.gz",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)

	assert.Equal(t, "busybox:1.36", created.Image)
	assert.Equal(t, []string{"ARCHIVE_NAME=ccf-node-backup-20260501-120000.tar.gz"}, created.Env)
	assert.Equal(t, "none", created.HostConfig.NetworkMode)
	require.Len(t, created.HostConfig.Mounts, 2)
	assert.Equal(t, "volume", created.HostConfig.Mounts[0].Type)
	assert.Equal(t, "ccf-node-vol", created.HostConfig.Mounts[0].Source)
	assert.Equal(t, "/data", created.HostConfig.Mounts[0].Target)
	assert.True(t, created.HostConfig.Mounts[0].ReadOnly)
	assert.Equal(t, "bind", created.HostConfig.Mounts[1].Type)
	assert.Equal(t, "/srv/backups", created.HostConfig.Mounts[1].Source)
	assert.False(t, created.HostConfig.Mounts[1].ReadOnly)

	calls := requests.all()
	assert.Equal(t, "DELETE /v1.41/containers/helper1", calls[len(calls)-1])
}

func TestRuntime_RunHelper_RemovesContainerOnStartFailure(t *testing.T) {
	requests := &requestLog{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.add(r)
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.URL.Path == "/v1.41/volumes/ccf-node-vol":
			_, _ = w.Write([]byte(`{"Name":"ccf-node-vol"}`))
		case r.URL.Path == "/v1.41/containers/create":
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"Id":"helper1","Warnings":[]}`))
		case r.URL.Path == "/v1.41/containers/helper1/wait":
			w.WriteHeader(http.StatusOK)
			w.(http.Flusher).Flush()
			<-r.Context().Done()
		case r.URL.Path == "/v1.41/containers/helper1/start":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"message":"bind source path does not exist"}`))
		case r.Method == http.MethodDelete && r.URL.Path == "/v1.41/containers/helper1":
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	runtime := newRuntimeForHTTPServer(t, server)
	_, err := runtime.RunHelper(ctx, domain.HelperJob{
		Kind:        domain.HelperRestore,
		Volume:      "ccf-node-vol",
		ArchiveDir:  "/missing",
		ArchiveName: "x.tar.gz",
	})
	require.Error(t, err)
	assert.Contains(t, requests.all(), "DELETE /v1.41/containers/helper1")
}

func TestRuntime_RunHelper_VolumeMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1.41/volumes/ccf-node-vol", r.URL.Path)
		writeNotFound(w, "no such volume")
	}))
	defer server.Close()

	runtime := newRuntimeForHTTPServer(t, server)
	_, err := runtime.RunHelper(context.Background(), domain.HelperJob{Kind: domain.HelperArchive, Volume: "ccf-node-vol"})
	assert.ErrorIs(t, err, domain.ErrVolumeNotFound)
}

func TestRuntime_Events(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1.41/events", r.URL.Path)
		assert.Equal(t, "1777550400", r.URL.Query().Get("since"))
		assert.Equal(t, "1777636800", r.URL.Query().Get("until"))
		assert.Contains(t, r.URL.Query().Get("filters"), "ccf-node")

		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)
		_ = enc.Encode(map[string]any{
			"Type": "container", "Action": "start",
			"Actor": map[string]any{"ID": "abc123", "Attributes": map[string]string{"name": "ccf-node"}},
			"time": 1777633200, "timeNano": int64(1777633200) * int64(time.Second),
		})
		_ = enc.Encode(map[string]any{
			"Type": "container", "Action": "die",
			"Actor": map[string]any{"ID": "abc123", "Attributes": map[string]string{"name": "ccf-node", "exitCode": "137"}},
			"time": 1777629600,
		})
	}))
	defer server.Close()

	since := time.Date(2026, 4, 30, 12, 0, 0, 0, time.UTC)
	until := since.Add(24 * time.Hour)

	runtime := newRuntimeForHTTPServer(t, server)
	evs, err := runtime.Events(context.Background(), "ccf-node", since, until)
	require.NoError(t, err)
	require.Len(t, evs, 2)

	assert.Equal(t, "die", evs[0].Action)
	assert.Equal(t, "137", evs[0].ExitCode)
	assert.Equal(t, time.Unix(1777629600, 0).UTC(), evs[0].Time)
	assert.Equal(t, "start", evs[1].Action)
}

func TestRuntime_StreamLogs_Demultiplexes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1.41/containers/ccf-node/json":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(inspectRunningNode))
		case "/v1.41/containers/ccf-node/logs":
			assert.Equal(t, "50", r.URL.Query().Get("tail"))
			w.Header().Set("Content-Type", "application/vnd.docker.multiplexed-stream")
			_, _ = w.Write(frame(1, "node started\n"))
			_, _ = w.Write(frame(2, "warning: slow disk\n"))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	var stdout, stderr strings.Builder
	runtime := newRuntimeForHTTPServer(t, server)
	err := runtime.StreamLogs(context.Background(), "ccf-node", domain.LogOptions{Tail: "50"}, &stdout, &stderr)
	require.NoError(t, err)

	assert.Equal(t, "node started\n", stdout.String())
	assert.Equal(t, "warning: slow disk\n", stderr.String())
}

func TestRuntime_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/_ping", strings.TrimPrefix(r.URL.Path, "/v1.41"))
		w.Header().Set("Api-Version", "1.41")
		_, _ = io.WriteString(w, "OK")
	}))
	defer server.Close()

	runtime := newRuntimeForHTTPServer(t, server)
	require.NoError(t, runtime.Ping(context.Background()))
}

// frame encodes one multiplexed log frame: stream id, 3 padding bytes, big-endian length.
func frame(stream byte, payload string) []byte {
	n := len(payload)
	header := []byte{stream, 0, 0, 0, byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
	return append(header, payload...)
}
