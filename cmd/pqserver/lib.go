package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-yaml/yaml"
	"github.com/google/uuid"

	"github.com/nasa-jpl/picoquant/client"
	"github.com/nasa-jpl/picoquant/decoder"
	"github.com/nasa-jpl/picoquant/fitsout"
	"github.com/nasa-jpl/picoquant/generichttp"
	"github.com/nasa-jpl/picoquant/limits"
	"github.com/nasa-jpl/picoquant/pq"
	"github.com/nasa-jpl/picoquant/server"
	"github.com/nasa-jpl/picoquant/server/middleware/locker"
	"github.com/nasa-jpl/picoquant/stats"
)

// FileSetup is a data file to serve
type FileSetup struct {
	// Endpoint is the path the routes of the file are served under,
	// e.g. "lab/run42" produces /lab/run42/header and so on.  The name of
	// the file without its extension is used when it is empty.
	Endpoint string `yaml:"Endpoint" koanf:"Endpoint"`

	// Path is the location of the file on disk
	Path string `yaml:"Path" koanf:"Path"`
}

// Config holds the parameters of the server
type Config struct {
	// Addr is the address to listen at
	Addr string `yaml:"Addr" koanf:"Addr"`

	// DataDir is where uploads are stored
	DataDir string `yaml:"DataDir" koanf:"DataDir"`

	// AllowUpload enables POST /upload
	AllowUpload bool `yaml:"AllowUpload" koanf:"AllowUpload"`

	// MaxUploadMB bounds the size of an upload
	MaxUploadMB int `yaml:"MaxUploadMB" koanf:"MaxUploadMB"`

	// Files is the list of files to serve
	Files []FileSetup `yaml:"Files" koanf:"Files"`
}

// LoadYaml converts a (path to a) yaml file into a Config struct
func LoadYaml(path string) (Config, error) {
	cfg := Config{}
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	err = yaml.NewDecoder(f).Decode(&cfg)
	return cfg, err
}

// decodeTimeout bounds a single decode started by a request
const decodeTimeout = 5 * time.Minute

// statusFor maps a decoder error to an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, pq.ErrOptions), errors.Is(err, pq.ErrMode), errors.Is(err, pq.ErrNotImplemented):
		return http.StatusBadRequest
	case errors.Is(err, pq.ErrUnknownBoard), errors.Is(err, pq.ErrUnknownData),
		errors.Is(err, pq.ErrVersion), errors.Is(err, pq.ErrEOF):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func fail(w http.ResponseWriter, err error) {
	log.Println(err)
	http.Error(w, err.Error(), statusFor(err))
}

// FileNode exposes one data file over HTTP
type FileNode struct {
	path string
	rt   generichttp.RouteTable

	mu   sync.Mutex
	file *client.File
	mod  time.Time
	size int64
	sum  uint32
}

// NewFileNode returns a FileNode for the file at path
func NewFileNode(path string) *FileNode {
	n := &FileNode{path: path, file: client.NewFile(path, client.LocalRunner{})}
	get := func(p string) generichttp.MethodPath {
		return generichttp.MethodPath{Method: http.MethodGet, Path: p}
	}
	n.rt = generichttp.RouteTable{
		get("/header"):         n.header,
		get("/resolution"):     n.resolution,
		get("/mode"):           n.mode,
		get("/data"):           n.data,
		get("/histogram.fits"): n.histogram,
		get("/stats"):          n.stats,
		get("/checksum"):       generichttp.GetString(n.checksumHex),
		get("/raw"):            n.raw,
	}
	return n
}

// RT satisfies generichttp.HTTPer
func (n *FileNode) RT() generichttp.RouteTable {
	return n.rt
}

func (n *FileNode) open() (*os.File, error) {
	f, err := os.Open(n.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pq.ErrIO, err)
	}
	return f, nil
}

// Checksum returns the CRC-32 of the file, recomputed when the file changes
func (n *FileNode) Checksum() (uint32, error) {
	st, err := os.Stat(n.path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", pq.ErrIO, err)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if st.ModTime().Equal(n.mod) && st.Size() == n.size {
		return n.sum, nil
	}
	f, err := n.open()
	if err != nil {
		return 0, err
	}
	defer f.Close()
	sum, err := decoder.Checksum(f)
	if err != nil {
		return 0, err
	}
	n.mod, n.size, n.sum = st.ModTime(), st.Size(), sum
	n.file = client.NewFile(n.path, client.LocalRunner{})
	return sum, nil
}

// current returns the decoder client of the file, replaced whenever
// Checksum sees the file change
func (n *FileNode) current() *client.File {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.file
}

func (n *FileNode) checksumHex() (string, error) {
	sum, err := n.Checksum()
	return fmt.Sprintf("%08x", sum), err
}

// ETag is a middleware which tags responses with the checksum of the file
// and answers 304 to requests which already hold it
func (n *FileNode) ETag(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || strings.HasSuffix(r.URL.Path, "/lock") {
			next.ServeHTTP(w, r)
			return
		}
		sum, err := n.checksumHex()
		if err != nil {
			fail(w, err)
			return
		}
		tag := `"` + sum + `"`
		w.Header().Set("ETag", tag)
		if r.Header.Get("If-None-Match") == tag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (n *FileNode) header(w http.ResponseWriter, r *http.Request) {
	h, err := n.current().Header(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	server.EncodeAndRespond(w, r, h.Map())
}

func (n *FileNode) resolution(w http.ResponseWriter, r *http.Request) {
	res, err := n.current().Resolution(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	server.EncodeAndRespond(w, r, res)
}

func (n *FileNode) mode(w http.ResponseWriter, r *http.Request) {
	generichttp.GetString(func() (string, error) {
		m, err := n.current().Mode(r.Context())
		return m.String(), err
	})(w, r)
}

// data streams the csv output of the decoder.  The query parameters n,
// to-t2 and markers map to the options of the same name.
func (n *FileNode) data(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var args []string
	if v := q.Get("n"); v != "" {
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			http.Error(w, "n must be an integer", http.StatusBadRequest)
			return
		}
		args = append(args, "--number", v)
	}
	for _, flag := range []string{"to-t2", "markers"} {
		if v := q.Get(flag); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				http.Error(w, flag+" must be a boolean", http.StatusBadRequest)
				return
			}
			if b {
				args = append(args, "--"+flag)
			}
		}
	}
	ctx, cancel := context.WithTimeout(r.Context(), decodeTimeout)
	defer cancel()
	rc, err := client.LocalRunner{}.Run(ctx, n.path, args...)
	if err != nil {
		fail(w, err)
		return
	}
	defer rc.Close()
	br := bufio.NewReaderSize(rc, 64*1024)
	if _, err := br.Peek(1); err != nil && err != io.EOF {
		fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, br); err != nil {
		log.Println("streaming", n.path, err)
	}
}

func (n *FileNode) histogram(w http.ResponseWriter, r *http.Request) {
	f, err := n.open()
	if err != nil {
		fail(w, err)
		return
	}
	defer f.Close()
	h, curves, err := decoder.Histogram(f)
	if err != nil {
		fail(w, err)
		return
	}
	buf := &bytes.Buffer{}
	if err := fitsout.WriteCurves(buf, h, curves); err != nil {
		fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/fits")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// stats summarises the file.  The query parameters time and time-scale
// add a histogram of the arrival times.
func (n *FileNode) stats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var edges []float64
	if v := q.Get("time"); v != "" {
		l, err := limits.Parse(v)
		if err != nil {
			fail(w, err)
			return
		}
		scale, err := limits.ParseScale(q.Get("time-scale"))
		if err != nil {
			fail(w, err)
			return
		}
		if edges, err = limits.Edges(l, scale); err != nil {
			fail(w, err)
			return
		}
	}
	opts := pq.DefaultOptions()
	if v := q.Get("n"); v != "" {
		num, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			http.Error(w, "n must be an integer", http.StatusBadRequest)
			return
		}
		opts.Number = num
	}
	f, err := n.open()
	if err != nil {
		fail(w, err)
		return
	}
	defer f.Close()
	pf, err := decoder.Open(f)
	if err != nil {
		fail(w, err)
		return
	}
	s, err := stats.Compute(pf, opts, edges)
	if err != nil {
		fail(w, err)
		return
	}
	server.EncodeAndRespond(w, r, s)
}

func (n *FileNode) raw(w http.ResponseWriter, r *http.Request) {
	server.ReplyWithFile(w, r, filepath.Base(n.path), filepath.Dir(n.path))
}

// Router returns the handler of the node, with a lock and etags
func (n *FileNode) Router() chi.Router {
	lock := locker.New()
	locker.Inject(n, lock)
	r := chi.NewRouter()
	r.Use(lock.Check)
	r.Use(n.ETag)
	n.rt.Bind(r)
	return r
}

// uploads serves the files added through POST /upload at /uploads/{id}
type uploads struct {
	sync.RWMutex
	dir     string
	maxMB   int
	routers map[string]chi.Router
	graph   map[string][]string
}

func (u *uploads) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rctx := chi.RouteContext(r.Context())
	rest := strings.TrimPrefix(rctx.RoutePath, "/")
	id := rest
	sub := "/"
	if idx := strings.Index(rest, "/"); idx >= 0 {
		id, sub = rest[:idx], rest[idx:]
	}
	u.RLock()
	router, ok := u.routers[id]
	u.RUnlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	rctx.RoutePath = sub
	router.ServeHTTP(w, r)
}

func (u *uploads) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, int64(u.maxMB)<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	src, hdr, err := r.FormFile("file")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer src.Close()
	id := uuid.New().String()
	dst := filepath.Join(u.dir, id+strings.ToLower(filepath.Ext(hdr.Filename)))
	f, err := os.Create(dst)
	if err != nil {
		fail(w, fmt.Errorf("%w: %v", pq.ErrIO, err))
		return
	}
	_, err = io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
		fail(w, fmt.Errorf("%w: %v", pq.ErrIO, err))
		return
	}
	node := NewFileNode(dst)
	endpoint := "/uploads/" + id
	router := node.Router()
	u.Lock()
	u.routers[id] = router
	u.graph[endpoint] = node.RT().Endpoints()
	u.Unlock()
	log.Println("uploaded", hdr.Filename, "to", endpoint)
	generichttp.GetString(func() (string, error) { return endpoint, nil })(w, r)
}

// BuildMux builds a router serving every file in the config.
// It serves a special route, /endpoints, which returns the routes of
// every file as JSON.
func BuildMux(c Config) chi.Router {
	root := chi.NewRouter()
	root.Use(middleware.Logger)
	supergraph := map[string][]string{}

	for _, setup := range c.Files {
		endpoint := setup.Endpoint
		if endpoint == "" {
			base := filepath.Base(setup.Path)
			endpoint = strings.TrimSuffix(base, filepath.Ext(base))
		}
		hndlS := generichttp.SubMuxSanitize(endpoint)
		node := NewFileNode(setup.Path)
		router := node.Router()
		supergraph[hndlS] = node.RT().Endpoints()
		root.Mount(hndlS, router)
	}

	up := &uploads{
		dir:     c.DataDir,
		maxMB:   c.MaxUploadMB,
		routers: map[string]chi.Router{},
		graph:   map[string][]string{},
	}
	if c.AllowUpload {
		if up.maxMB <= 0 {
			up.maxMB = 1024
		}
		root.Post("/upload", up.upload)
		root.Mount("/uploads", up)
	}

	root.Get("/endpoints", func(w http.ResponseWriter, r *http.Request) {
		graph := map[string][]string{}
		for k, v := range supergraph {
			graph[k] = v
		}
		up.RLock()
		for k, v := range up.graph {
			graph[k] = v
		}
		up.RUnlock()
		server.EncodeAndRespond(w, r, graph)
	})
	return root
}
