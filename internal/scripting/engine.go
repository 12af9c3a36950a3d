package scripting

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/l1jgo/assetd/internal/asset"
	"github.com/l1jgo/assetd/internal/loader"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

const defaultLoadTimeout = time.Minute

// Engine wraps a single gopher-lua VM with the asset registry exposed as
// the global table "assets". Single-goroutine access only.
type Engine struct {
	vm          *lua.LState
	reg         *asset.Registry
	log         *zap.Logger
	loadTimeout time.Duration
}

// NewEngine creates a Lua VM bound to reg.
func NewEngine(reg *asset.Registry, log *zap.Logger) *Engine {
	vm := lua.NewState()
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, reg: reg, log: log, loadTimeout: defaultLoadTimeout}

	mod := vm.NewTable()
	vm.SetFuncs(mod, map[string]lua.LGFunction{
		"find":     e.luaFind,
		"find_all": e.luaFindAll,
		"get":      e.luaGet,
		"by_url":   e.luaByURL,
		"load":     e.luaLoad,
		"count":    e.luaCount,
		"log":      e.luaLog,
	})
	vm.SetGlobal("assets", mod)
	return e
}

func (e *Engine) Close() {
	e.vm.Close()
}

// RunDir runs every .lua file in dir in name order and returns how many
// ran. A missing directory runs nothing.
func (e *Engine) RunDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	n := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return n, fmt.Errorf("run %s: %w", path, err)
		}
		e.log.Debug("ran lua script", zap.String("file", path))
		n++
	}
	return n, nil
}

// DoString runs a Lua chunk.
func (e *Engine) DoString(src string) error {
	return e.vm.DoString(src)
}

// CallHook calls the global Lua function name with the given assets as an
// array of asset tables. Missing hooks are ignored.
func (e *Engine) CallHook(name string, assets []*asset.Asset) error {
	fn := e.vm.GetGlobal(name)
	if fn == lua.LNil {
		return nil
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, e.assetList(assets)); err != nil {
		return fmt.Errorf("lua hook %s: %w", name, err)
	}
	return nil
}

// assets.find(name [, type]) -> asset | nil
func (e *Engine) luaFind(L *lua.LState) int {
	name := L.CheckString(1)
	typ := e.checkType(L, 2)
	L.Push(e.assetValue(e.reg.Find(name, typ)))
	return 1
}

// assets.find_all(name [, type]) -> {asset, ...}
func (e *Engine) luaFindAll(L *lua.LState) int {
	name := L.CheckString(1)
	typ := e.checkType(L, 2)
	L.Push(e.assetList(e.reg.FindAll(name, typ)))
	return 1
}

// assets.get(id) -> asset | nil
func (e *Engine) luaGet(L *lua.LState) int {
	L.Push(e.assetValue(e.reg.GetAssetByResourceID(L.CheckString(1))))
	return 1
}

// assets.by_url(url) -> asset | nil
func (e *Engine) luaByURL(L *lua.LState) int {
	L.Push(e.assetValue(e.reg.GetAssetByURL(L.CheckString(1))))
	return 1
}

// assets.load(id, ...) -> {asset, ...} | nil, err
func (e *Engine) luaLoad(L *lua.LState) int {
	top := L.GetTop()
	batch := make([]*asset.Asset, 0, top)
	for i := 1; i <= top; i++ {
		id := L.CheckString(i)
		a := e.reg.GetAssetByResourceID(id)
		if a == nil {
			L.Push(lua.LNil)
			L.Push(lua.LString(fmt.Sprintf("unknown asset %q", id)))
			return 2
		}
		batch = append(batch, a)
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.loadTimeout)
	defer cancel()
	if _, err := e.reg.Load(ctx, batch).Wait(ctx); err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(e.assetList(batch))
	return 1
}

// assets.count() -> n
func (e *Engine) luaCount(L *lua.LState) int {
	L.Push(lua.LNumber(e.reg.Count()))
	return 1
}

// assets.log(msg)
func (e *Engine) luaLog(L *lua.LState) int {
	e.log.Info("script", zap.String("msg", L.CheckString(1)))
	return 0
}

func (e *Engine) checkType(L *lua.LState, n int) asset.Type {
	typ, err := asset.ParseType(L.OptString(n, ""))
	if err != nil {
		L.ArgError(n, err.Error())
	}
	return typ
}

func (e *Engine) assetList(list []*asset.Asset) *lua.LTable {
	t := e.vm.NewTable()
	for _, a := range list {
		t.Append(e.assetValue(a))
	}
	return t
}

func (e *Engine) assetValue(a *asset.Asset) lua.LValue {
	if a == nil {
		return lua.LNil
	}
	t := e.vm.NewTable()
	t.RawSetString("id", lua.LString(a.ResourceID))
	t.RawSetString("name", lua.LString(a.Name))
	t.RawSetString("type", lua.LString(a.Type.String()))
	t.RawSetString("preload", lua.LBool(a.Preload))
	if a.File != nil {
		t.RawSetString("url", lua.LString(e.reg.FileURL(a)))
		t.RawSetString("hash", lua.LString(a.File.Hash))
	}
	t.RawSetString("loaded", lua.LBool(a.Resource != nil))

	switch r := a.Resource.(type) {
	case *loader.Model:
		t.RawSetString("format", lua.LString(r.Format))
		t.RawSetString("vertices", lua.LNumber(r.Vertices))
		t.RawSetString("meshes", lua.LNumber(len(r.Meshes)))
	case *loader.Texture:
		t.RawSetString("format", lua.LString(r.Format))
		t.RawSetString("width", lua.LNumber(r.Width))
		t.RawSetString("height", lua.LNumber(r.Height))
	case *loader.File:
		t.RawSetString("mime", lua.LString(r.MIME))
		t.RawSetString("size", lua.LNumber(len(r.Data)))
	}
	return t
}
