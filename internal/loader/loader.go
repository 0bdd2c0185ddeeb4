// Package loader defines the LanguageLoader port: the boundary between this
// server and however a target grammar's shared library or WebAssembly
// artifact actually gets resolved and loaded. Dynamic loading of
// native/wasm grammar objects is treated as an external collaborator, so
// this package specifies the concrete parts (name normalization,
// search-path strategy) and leaves the unsafe part (dlopen / wasm
// instantiation) as narrow, nil-able hooks rather than fabricating glue
// code. See DESIGN.md for the reasoning.
package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/tetratelabs/wazero"

	"github.com/shinyvision/queryls/internal/langinfo"
)

// LanguageHandle is an opaque reference to a loaded grammar. Its lifetime
// must outlive every syntax node produced from it: once a handle is
// returned it is never unloaded by this package.
type LanguageHandle struct {
	Name   string
	Source string // path of the .so/.dylib/.dll/.wasm artifact that produced it, for diagnostics
}

// LanguageLoader resolves a grammar name to a loaded handle plus its
// computed vocabulary. Implementations must never treat a load failure as
// fatal: a nil LanguageInfo with a non-nil error means "no language info,"
// not "crash the server."
type LanguageLoader interface {
	ResolveLanguage(ctx context.Context, name string, searchDirs []string) (LanguageHandle, *langinfo.LanguageInfo, error)
}

// NormalizeName replaces '-' with '_', tree-sitter's exported symbol
// convention (tree_sitter_<name>).
func NormalizeName(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

// sharedObjectExtensions lists, in search order, the platform's native
// shared-library extensions to probe for a given directory before falling
// back to a WebAssembly artifact.
func sharedObjectExtensions() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{".dll"}
	case "darwin":
		return []string{".dylib", ".so"}
	default:
		return []string{".so"}
	}
}

// CandidatePaths returns, in probe order, the native shared-object paths and
// finally the WebAssembly artifact path that ResolveLanguage should try for
// the given grammar name within a single search directory.
func CandidatePaths(dir, name string) (native []string, wasm string) {
	norm := NormalizeName(name)
	for _, ext := range sharedObjectExtensions() {
		native = append(native, filepath.Join(dir, "tree_sitter_"+norm+ext))
		native = append(native, filepath.Join(dir, "lib"+norm+ext))
	}
	wasm = filepath.Join(dir, "tree-sitter-"+name+".wasm")
	return native, wasm
}

// OpenNativeLibrary opens a native shared object exporting
// tree_sitter_<name> and returns an opaque handle to the loaded language
// plus the library handle that must be kept alive for as long as any node
// produced by it is reachable. Left nil by default: dlopen is inexpressible
// without cgo, which nothing in this module's lineage uses. A deployment
// that needs native grammars supplies its own implementation.
type OpenNativeLibrary func(path, symbol string) (language uintptr, libHandle uintptr, err error)

// OpenWasmModule instantiates a WebAssembly grammar artifact using a
// per-worker wazero runtime/store (each worker constructs its own store on
// demand; grammar artifacts are cached, see WazeroModuleCache below). Left
// nil by default for the same reason as OpenNativeLibrary: actually wiring
// a runtime here is implementation-specific to the embedding application.
type OpenWasmModule func(ctx context.Context, wasmBytes []byte, name string) (language uintptr, err error)

// ValidateWasmArtifact compiles the artifact with a throwaway wazero
// runtime and checks that it exports the grammar's entry point. It does not
// instantiate the module: instantiation belongs to the per-worker store an
// OpenWasmModule implementation constructs. This lets a candidate .wasm be
// rejected early, before any worker commits to it.
func ValidateWasmArtifact(ctx context.Context, wasmBytes []byte, name string) error {
	r := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfigInterpreter())
	defer r.Close(ctx)

	compiled, err := r.CompileModule(ctx, wasmBytes)
	if err != nil {
		return fmt.Errorf("loader: compile wasm artifact for %q: %w", name, err)
	}
	defer compiled.Close(ctx)

	symbol := "tree_sitter_" + NormalizeName(name)
	if _, ok := compiled.ExportedFunctions()[symbol]; !ok {
		return fmt.Errorf("loader: wasm artifact for %q does not export %s", name, symbol)
	}
	return nil
}

// WazeroModuleCache caches decoded .wasm bytes per grammar name so that
// per-worker stores (constructed via OpenWasmModule) don't each need to
// re-read the artifact from disk. It does not cache compiled modules or
// runtime instances, since those are not meant to be shared across threads.
type WazeroModuleCache struct {
	mu    sync.RWMutex
	bytes map[string][]byte
}

// NewWazeroModuleCache constructs an empty cache.
func NewWazeroModuleCache() *WazeroModuleCache {
	return &WazeroModuleCache{bytes: make(map[string][]byte)}
}

// Get returns the cached wasm bytes for name, if present.
func (c *WazeroModuleCache) Get(name string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.bytes[name]
	return b, ok
}

// Put stores wasm bytes for name, replacing any previous entry atomically.
func (c *WazeroModuleCache) Put(name string, wasmBytes []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bytes[name] = wasmBytes
}

// StaticLanguageLoader is a reference/test LanguageLoader backed by an
// in-memory table rather than real dynamic loading. It mirrors this
// server's pattern elsewhere of injecting precomputed configuration into
// a component rather than resolving dependencies live.
type StaticLanguageLoader struct {
	mu    sync.RWMutex
	table map[string]*langinfo.LanguageInfo
}

// NewStaticLanguageLoader builds a loader with no registered languages.
func NewStaticLanguageLoader() *StaticLanguageLoader {
	return &StaticLanguageLoader{table: make(map[string]*langinfo.LanguageInfo)}
}

// Register adds or replaces the LanguageInfo for a grammar name.
func (l *StaticLanguageLoader) Register(name string, info *langinfo.LanguageInfo) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.table[NormalizeName(name)] = info
}

// ResolveLanguage implements LanguageLoader by table lookup. A missing
// entry is reported as a non-fatal error with nil LanguageInfo: a
// grammar-load failure silently degrades rather than crashing the server.
func (l *StaticLanguageLoader) ResolveLanguage(_ context.Context, name string, _ []string) (LanguageHandle, *langinfo.LanguageInfo, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	info, ok := l.table[NormalizeName(name)]
	if !ok {
		return LanguageHandle{}, nil, fmt.Errorf("loader: no registered language info for %q", name)
	}
	return LanguageHandle{Name: name}, info, nil
}
