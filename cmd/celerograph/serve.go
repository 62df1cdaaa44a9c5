package main

import (
	"bytes"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/tiancaiamao/celerograph"
)

const maxUploadSize = 32 << 20

type server struct {
	dir  string
	opts celerograph.ReportOptions

	// reloadMu serializes reloads so that pages are swapped in the order
	// the data directory changed.
	reloadMu sync.Mutex

	mu    sync.RWMutex
	index []byte
	pages map[string][]byte
}

func newServer(dir string, opts celerograph.ReportOptions) *server {
	return &server{dir: dir, opts: opts, pages: make(map[string][]byte)}
}

// reload renders every page from the data directory and swaps them in.
func (s *server) reload() error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	agg, err := celerograph.LoadPath(s.dir)
	if errors.Is(err, celerograph.ErrNoSources) {
		agg, err = celerograph.NewAggregate(), nil
	}
	if err != nil {
		return err
	}
	docs, err := celerograph.RenderReports(agg, s.opts)
	if err != nil {
		return err
	}
	entries := celerograph.IndexEntries(agg, docs)
	for i := range entries {
		entries[i].File = "report/" + entries[i].File
	}
	var index bytes.Buffer
	if err := celerograph.WriteIndex(&index, entries); err != nil {
		return err
	}
	pages := make(map[string][]byte, len(docs))
	for _, d := range docs {
		pages[d.Name] = d.Content
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = index.Bytes()
	s.pages = pages
	log.Printf("loaded %d groups from %s", agg.Len(), s.dir)
	return nil
}

func (s *server) indexHandle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(s.index)
}

func (s *server) reportHandle(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/report/")
	s.mu.RLock()
	defer s.mu.RUnlock()
	page, ok := s.pages[name]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

func (s *server) uploadHandle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method should be POST", http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()

	name := r.URL.Query().Get("name")
	if name == "" || path.Base(name) != name || filepath.Ext(name) != ".csv" {
		http.Error(w, "name should be a plain .csv file name", http.StatusBadRequest)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxUploadSize))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := celerograph.Collect(celerograph.NewReader(bytes.NewReader(body), name)); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := os.WriteFile(filepath.Join(s.dir, name), body, 0o644); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := s.reload(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *server) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.indexHandle)
	mux.HandleFunc("/report/", s.reportHandle)
	mux.HandleFunc("/upload", s.uploadHandle)
	return mux
}

func (a *app) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve reports of a data directory over HTTP and accept CSV uploads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir := a.v.GetString("serve.data")
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			s := newServer(dir, a.reportOptions())
			if err := s.reload(); err != nil {
				return err
			}
			addr := a.v.GetString("serve.addr")
			log.Printf("listening on %s", addr)
			return http.ListenAndServe(addr, s.handler())
		},
	}
	cmd.Flags().String("addr", ":18081", "listen address")
	cmd.Flags().String("data", "data", "directory of CSV result files")
	bindFlags(a.v, cmd.Flags(), map[string]string{
		"serve.addr": "addr",
		"serve.data": "data",
	})
	return cmd
}
