package stage

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
)

const (
	sandboxTimeoutViolation     = "sandbox timeout"
	sandboxInstructionViolation = "sandbox instruction limit"
	sandboxMemoryViolation      = "sandbox memory limit"
)

const (
	defaultLuaTimeoutMs        = 2000
	defaultLuaInstructionLimit = 1000000
	defaultLuaMemoryLimitBytes = 8388608
)

func luaSandboxFromMeta(meta *Meta) LuaSandboxMeta {
	cfg := LuaSandboxMeta{
		TimeoutMs:        defaultLuaTimeoutMs,
		InstructionLimit: defaultLuaInstructionLimit,
		MemoryLimitBytes: defaultLuaMemoryLimitBytes,
		Libs: LuaSandboxLibsMeta{
			Base:   true,
			Table:  true,
			String: true,
			Math:   true,
		},
		DeterministicRandom: true,
	}
	if meta == nil || meta.LuaSandbox == nil {
		return cfg
	}
	in := meta.LuaSandbox
	if in.TimeoutMs >= 0 {
		cfg.TimeoutMs = in.TimeoutMs
	}
	if in.InstructionLimit >= 0 {
		cfg.InstructionLimit = in.InstructionLimit
	}
	if in.MemoryLimitBytes >= 0 {
		cfg.MemoryLimitBytes = in.MemoryLimitBytes
	}
	cfg.Libs = in.Libs
	cfg.DeterministicRandom = in.DeterministicRandom
	return cfg
}

func newSandboxLuaState(stage, locator string, cfg LuaSandboxMeta) *lua.LState {
	regMax := registryMaxFromMemory(cfg.MemoryLimitBytes)
	L := lua.NewState(lua.Options{
		SkipOpenLibs:     true,
		RegistrySize:     256,
		RegistryMaxSize:  regMax,
		RegistryGrowStep: 0,
	})
	openLib := func(name string, f lua.LGFunction) {
		L.Push(L.NewFunction(f))
		L.Push(lua.LString(name))
		L.Call(1, 0)
	}
	if cfg.Libs.Base {
		openLib("base", lua.OpenBase)
	}
	if cfg.Libs.String {
		openLib("string", lua.OpenString)
	}
	if cfg.Libs.Table {
		openLib("table", lua.OpenTable)
	}
	if cfg.Libs.Math {
		openLib("math", lua.OpenMath)
	}
	if cfg.Libs.Math && cfg.DeterministicRandom {
		seed := deterministicSeed(stage, locator)
		installDeterministicRandom(L, seed)
	}
	return L
}

func registryMaxFromMemory(memoryLimitBytes int) int {
	if memoryLimitBytes <= 0 {
		return 256
	}
	// Conservative best-effort: lower registry ceiling when memory limit is low.
	n := memoryLimitBytes / 64
	if n < 128 {
		n = 128
	}
	if n > 4096 {
		n = 4096
	}
	return n
}

func deterministicSeed(stage, locator string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(stage))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(locator))
	return int64(h.Sum64() & 0x7fffffffffffffff)
}

func installDeterministicRandom(L *lua.LState, seed int64) {
	mathTbl, ok := L.GetGlobal("math").(*lua.LTable)
	if !ok || mathTbl == nil {
		return
	}
	rng := rand.New(rand.NewSource(seed))
	mathTbl.RawSetString("random", L.NewFunction(func(L *lua.LState) int {
		top := L.GetTop()
		switch top {
		case 0:
			L.Push(lua.LNumber(rng.Float64()))
			return 1
		case 1:
			max := L.CheckInt(1)
			if max < 1 {
				L.ArgError(1, "interval is empty")
				return 0
			}
			L.Push(lua.LNumber(rng.Intn(max) + 1))
			return 1
		default:
			min := L.CheckInt(1)
			max := L.CheckInt(2)
			if max < min {
				L.ArgError(2, "interval is empty")
				return 0
			}
			L.Push(lua.LNumber(rng.Intn(max-min+1) + min))
			return 1
		}
	}))
	mathTbl.RawSetString("randomseed", L.NewFunction(func(L *lua.LState) int {
		return 0
	}))
}

func instructionLimitWouldTrip(code string, instructionLimit int) bool {
	if instructionLimit <= 0 {
		return false
	}
	cost := len(code) * 10
	lower := strings.ToLower(code)
	if strings.Contains(lower, "while ") || strings.Contains(lower, "repeat") || strings.Contains(lower, "for ") {
		cost += 1000000
	}
	return cost > instructionLimit
}

func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if err == context.DeadlineExceeded {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "deadline") || strings.Contains(strings.ToLower(err.Error()), "context canceled")
}

func estimateValueSize(v any, depth int) int {
	if depth > 32 {
		return 0
	}
	switch x := v.(type) {
	case nil:
		return 0
	case string:
		return len(x)
	case bool:
		return 1
	case float64:
		return 8
	case int:
		return 8
	case int64:
		return 8
	case map[string]any:
		n := 0
		for k, v2 := range x {
			n += len(k)
			n += estimateValueSize(v2, depth+1)
		}
		return n
	case []any:
		n := 0
		for _, v2 := range x {
			n += estimateValueSize(v2, depth+1)
		}
		return n
	default:
		return 16
	}
}

// bodyEvaluator evaluates case body expressions in a single sandboxed
// Lua state so that side effects of earlier bodies stay visible to
// later ones within one definition.
type bodyEvaluator struct {
	L   *lua.LState
	cfg LuaSandboxMeta
}

// newBodyEvaluator builds the sandbox for one definition and installs
// the subject and scope globals.
func newBodyEvaluator(stage, locator string, meta *Meta, subject any, scope map[string]any) *bodyEvaluator {
	cfg := luaSandboxFromMeta(meta)
	L := newSandboxLuaState(stage, locator, cfg)
	L.SetGlobal("subject", toLValue(L, subject))
	for k, v := range scope {
		L.SetGlobal(k, toLValue(L, v))
	}
	return &bodyEvaluator{L: L, cfg: cfg}
}

func (e *bodyEvaluator) close() { e.L.Close() }

// evalBody evaluates the expressions of one case body in order and
// returns the value of the last one. Earlier expressions count only for
// their side effects. An empty body yields nil.
func (e *bodyEvaluator) evalBody(exprs []string) (any, string, error) {
	var out any
	for _, expr := range exprs {
		v, violation, err := e.evalExpr(expr)
		if violation != "" || err != nil {
			return nil, violation, err
		}
		out = v
	}
	return out, "", nil
}

func (e *bodyEvaluator) evalExpr(expr string) (any, string, error) {
	if instructionLimitWouldTrip(expr, e.cfg.InstructionLimit) {
		return nil, sandboxInstructionViolation, nil
	}
	if e.cfg.TimeoutMs > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(e.cfg.TimeoutMs)*time.Millisecond)
		defer cancel()
		e.L.SetContext(ctx)
	}
	fn, err := e.loadExpr(expr)
	if err != nil {
		return nil, "", err
	}
	e.L.Push(fn)
	if err := e.L.PCall(0, 1, nil); err != nil {
		if isTimeoutError(err) {
			return nil, sandboxTimeoutViolation, nil
		}
		if strings.Contains(strings.ToLower(err.Error()), "registry overflow") {
			return nil, sandboxMemoryViolation, nil
		}
		return nil, "", err
	}
	ret := e.L.Get(-1)
	e.L.Pop(1)
	out := fromLValue(ret)
	if e.cfg.MemoryLimitBytes > 0 && estimateValueSize(out, 0) > e.cfg.MemoryLimitBytes {
		return nil, sandboxMemoryViolation, nil
	}
	return out, "", nil
}

// loadExpr compiles a body entry. Entries are usually expressions, so
// they are first compiled wrapped in a return; statements such as
// assignments fall back to a plain chunk whose value is nil.
func (e *bodyEvaluator) loadExpr(expr string) (*lua.LFunction, error) {
	if !strings.Contains(expr, "return") {
		if fn, err := e.L.LoadString("return (" + expr + ")"); err == nil {
			return fn, nil
		}
	}
	return e.L.LoadString(expr)
}

func luaViolationFailFast(stage, violation string) error {
	return fmt.Errorf("%s: %s", stage, violation)
}
