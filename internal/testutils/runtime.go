package testutils

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bnema/ledgerctl/internal/domain"
)

// FakeRuntime is an in-memory container engine. It records every call in
// order, keeps volume contents as files, and runs helper jobs by actually
// writing and reading tar.gz archives on the host.
type FakeRuntime struct {
	mu sync.Mutex

	Containers map[string]*domain.ContainerInfo
	Volumes    map[string]map[string][]byte

	// Errs forces a method (by name) to fail.
	Errs map[string]error

	EventLog  []domain.LifecycleEvent
	EventsErr error
	LogOutput string

	calls      []string
	helperJobs []domain.HelperJob
	now        time.Time
}

// NewFakeRuntime returns an empty engine.
func NewFakeRuntime() *FakeRuntime {
	return &FakeRuntime{
		Containers: make(map[string]*domain.ContainerInfo),
		Volumes:    make(map[string]map[string][]byte),
		Errs:       make(map[string]error),
		now:        time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

// AddNode registers a container and its volume with the given files.
func (f *FakeRuntime) AddNode(id domain.Identity, running bool, policy domain.RestartPolicy, files map[string][]byte) {
	f.mu.Lock()
	defer f.mu.Unlock()

	status := "exited"
	if running {
		status = "running"
	}
	f.Containers[id.Name()] = &domain.ContainerInfo{
		ID:        "id-" + id.Name(),
		Name:      id.Name(),
		Image:     "ccf/node:latest",
		Status:    status,
		Running:   running,
		Policy:    policy,
		StartedAt: f.now.Add(-time.Hour),
		Ports:     []domain.PortBinding{{ContainerPort: "8000/tcp", HostIP: "0.0.0.0", HostPort: "8000"}},
	}
	vol := make(map[string][]byte, len(files))
	for k, v := range files {
		vol[k] = append([]byte(nil), v...)
	}
	f.Volumes[id.Volume()] = vol
}

// Calls returns the recorded calls, e.g. "StopContainer ccf-node".
func (f *FakeRuntime) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Mutations returns the recorded calls that change engine state.
func (f *FakeRuntime) Mutations() []string {
	var out []string
	for _, c := range f.Calls() {
		switch strings.Fields(c)[0] {
		case "InspectContainer", "VolumeExists", "StreamLogs", "Events", "Ping":
			continue
		}
		out = append(out, c)
	}
	return out
}

// HelperJobs returns the helper jobs that were run.
func (f *FakeRuntime) HelperJobs() []domain.HelperJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.HelperJob(nil), f.helperJobs...)
}

// VolumeFiles returns a copy of a volume's contents.
func (f *FakeRuntime) VolumeFiles(volume string) map[string][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	vol, ok := f.Volumes[volume]
	if !ok {
		return nil
	}
	out := make(map[string][]byte, len(vol))
	for k, v := range vol {
		out[k] = append([]byte(nil), v...)
	}
	return out
}

// SetVolumeFiles replaces a volume's contents.
func (f *FakeRuntime) SetVolumeFiles(volume string, files map[string][]byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Volumes[volume] = files
}

func (f *FakeRuntime) record(method string, args ...string) error {
	f.calls = append(f.calls, strings.Join(append([]string{method}, args...), " "))
	if err, ok := f.Errs[method]; ok {
		return err
	}
	return nil
}

func (f *FakeRuntime) InspectContainer(_ context.Context, name string) (*domain.ContainerInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("InspectContainer", name); err != nil {
		return nil, err
	}
	c, ok := f.Containers[name]
	if !ok {
		return nil, domain.ErrContainerNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *FakeRuntime) StartContainer(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("StartContainer", name); err != nil {
		return err
	}
	c, ok := f.Containers[name]
	if !ok {
		return domain.ErrContainerNotFound
	}
	c.Running = true
	c.Status = "running"
	c.StartedAt = f.now
	return nil
}

func (f *FakeRuntime) StopContainer(_ context.Context, name string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("StopContainer", name); err != nil {
		return err
	}
	c, ok := f.Containers[name]
	if !ok {
		return domain.ErrContainerNotFound
	}
	if c.Running {
		c.Running = false
		c.Status = "exited"
		c.ExitCode = 0
		c.FinishedAt = f.now
	}
	return nil
}

func (f *FakeRuntime) RemoveContainer(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("RemoveContainer", name); err != nil {
		return err
	}
	if _, ok := f.Containers[name]; !ok {
		return domain.ErrContainerNotFound
	}
	delete(f.Containers, name)
	return nil
}

func (f *FakeRuntime) UpdateRestartPolicy(_ context.Context, name string, policy domain.RestartPolicy) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UpdateRestartPolicy", name, policy.String()); err != nil {
		return err
	}
	c, ok := f.Containers[name]
	if !ok {
		return domain.ErrContainerNotFound
	}
	c.Policy = policy
	return nil
}

func (f *FakeRuntime) VolumeExists(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("VolumeExists", name); err != nil {
		return false, err
	}
	_, ok := f.Volumes[name]
	return ok, nil
}

func (f *FakeRuntime) RemoveVolume(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("RemoveVolume", name); err != nil {
		return err
	}
	if _, ok := f.Volumes[name]; !ok {
		return domain.ErrVolumeNotFound
	}
	delete(f.Volumes, name)
	return nil
}

func (f *FakeRuntime) RunHelper(_ context.Context, job domain.HelperJob) (*domain.HelperResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("RunHelper", string(job.Kind), job.Volume); err != nil {
		return nil, err
	}
	f.helperJobs = append(f.helperJobs, job)

	vol, ok := f.Volumes[job.Volume]
	if !ok {
		return nil, domain.ErrVolumeNotFound
	}
	path := filepath.Join(job.ArchiveDir, job.ArchiveName)

	switch job.Kind {
	case domain.HelperArchive:
		if err := WriteArchive(path, vol); err != nil {
			return &domain.HelperResult{ExitCode: 1, Output: err.Error()}, nil
		}
	case domain.HelperRestore:
		if job.ReadOnly {
			return &domain.HelperResult{ExitCode: 1, Output: "read-only file system"}, nil
		}
		files, err := ReadArchive(path)
		if err != nil {
			return &domain.HelperResult{ExitCode: 1, Output: err.Error()}, nil
		}
		f.Volumes[job.Volume] = files
	default:
		return nil, fmt.Errorf("unknown helper kind %q", job.Kind)
	}
	return &domain.HelperResult{ExitCode: 0}, nil
}

func (f *FakeRuntime) StreamLogs(ctx context.Context, name string, opts domain.LogOptions, stdout, _ io.Writer) error {
	f.mu.Lock()
	err := f.record("StreamLogs", name)
	_, ok := f.Containers[name]
	output := f.LogOutput
	f.mu.Unlock()
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrContainerNotFound
	}
	if _, err := io.WriteString(stdout, output); err != nil {
		return err
	}
	if opts.Follow {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (f *FakeRuntime) Events(_ context.Context, name string, since, until time.Time) ([]domain.LifecycleEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Events", name); err != nil {
		return nil, err
	}
	if f.EventsErr != nil {
		return nil, f.EventsErr
	}
	var out []domain.LifecycleEvent
	for _, ev := range f.EventLog {
		if ev.Time.Before(since) || ev.Time.After(until) {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func (f *FakeRuntime) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record("Ping")
}

// FreshStart simulates the node creation script. Like the real ledger it
// refuses to initialize over an existing volume.
func (f *FakeRuntime) FreshStart(_ context.Context, id domain.Identity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("FreshStart", id.Name()); err != nil {
		return err
	}
	if _, ok := f.Volumes[id.Volume()]; ok {
		return errors.New("storage directory already exists")
	}
	f.Volumes[id.Volume()] = map[string][]byte{}
	f.Containers[id.Name()] = &domain.ContainerInfo{
		ID:        "id-" + id.Name() + "-fresh",
		Name:      id.Name(),
		Status:    "running",
		Running:   true,
		Policy:    domain.RestartUnlessStopped(),
		StartedAt: f.now,
	}
	return nil
}

// FreshStarter binds FreshStart to an identity so it satisfies out.FreshStarter.
func (f *FakeRuntime) FreshStarter(id domain.Identity) FreshStartFunc {
	return func(ctx context.Context) error { return f.FreshStart(ctx, id) }
}

// FreshStartFunc adapts a function to out.FreshStarter.
type FreshStartFunc func(ctx context.Context) error

// FreshStart implements out.FreshStarter.
func (fn FreshStartFunc) FreshStart(ctx context.Context) error { return fn(ctx) }

// WriteArchive writes files as a tar.gz at path, laid out the way the
// archive helper stores volume contents. It refuses to overwrite.
func WriteArchive(path string, files map[string][]byte) (err error) {
	if _, statErr := os.Stat(path); statErr == nil {
		return fmt.Errorf("%s already exists", path)
	}
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := fh.Close(); err == nil {
			err = cerr
		}
	}()

	gz := gzip.NewWriter(fh)
	tw := tar.NewWriter(gz)

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		data := files[name]
		if err := tw.WriteHeader(&tar.Header{Name: "./" + name, Typeflag: tar.TypeReg, Mode: 0o600, Size: int64(len(data))}); err != nil {
			return err
		}
		if _, err := tw.Write(data); err != nil {
			return err
		}
	}
	if err := tw.Close(); err != nil {
		return err
	}
	return gz.Close()
}

// ReadArchive returns the regular files in a tar.gz keyed by relative path.
func ReadArchive(path string) (map[string][]byte, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	gz, err := gzip.NewReader(fh)
	if err != nil {
		return nil, err
	}
	tr := tar.NewReader(gz)

	files := make(map[string][]byte)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return files, nil
		}
		if err != nil {
			return nil, err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, err
		}
		files[strings.TrimPrefix(hdr.Name, "./")] = data
	}
}
