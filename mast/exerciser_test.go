package mast

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/commands"
	"github.com/leanovate/gopter/gen"
	"github.com/stretchr/testify/assert"
)

type expected struct {
	entries map[uint]uint
}

type system struct {
	m        *Tree
	backend  Backend
	cmdCount int
}

const uimax = 9_999

var (
	cmdCount  = 0
	maxHeight uint8
	debug     = false
)

func progress(i interface{}) {
	if debug {
		fmt.Printf("%v\n", i)
	}
}

func okResult(result commands.Result, what string) *gopter.PropResult {
	if result != nil {
		fmt.Printf("%s PostCondition: %v\n", what, result)
		return &gopter.PropResult{Status: gopter.PropFalse}
	}
	progress(what)
	return &gopter.PropResult{Status: gopter.PropTrue}
}

var FlushCommand = &commands.ProtoCommand{
	Name: "Flush",
	RunFunc: func(s commands.SystemUnderTest) commands.Result {
		err := s.(*system).m.Flush(ctx)
		if err != nil {
			return err
		}
		s.(*system).cmdCount++
		return nil
	},
	NextStateFunc:    func(state commands.State) commands.State { return state },
	PreConditionFunc: func(state commands.State) bool { return true },
	PostConditionFunc: func(state commands.State, result commands.Result) *gopter.PropResult {
		return okResult(result, "Flush")
	},
}

// ReopenCommand replaces the tree with one loaded from the last
// checkpoint, after flushing.
var ReopenCommand = &commands.ProtoCommand{
	Name: "Reopen",
	RunFunc: func(s commands.SystemUnderTest) commands.Result {
		sys := s.(*system)
		err := sys.m.Flush(ctx)
		if err != nil {
			return err
		}
		m, err := Open(ctx, Config{Backend: sys.backend})
		if err != nil {
			return err
		}
		sys.m = m
		sys.cmdCount++
		return nil
	},
	NextStateFunc:    func(state commands.State) commands.State { return state },
	PreConditionFunc: func(state commands.State) bool { return true },
	PostConditionFunc: func(state commands.State, result commands.Result) *gopter.PropResult {
		return okResult(result, "Reopen")
	},
}

var SizeCommand = &commands.ProtoCommand{
	Name: "Size",
	RunFunc: func(s commands.SystemUnderTest) commands.Result {
		s.(*system).cmdCount++
		return s.(*system).m.Size()
	},
	NextStateFunc:    func(state commands.State) commands.State { return state },
	PreConditionFunc: func(state commands.State) bool { return true },
	PostConditionFunc: func(state commands.State, result commands.Result) *gopter.PropResult {
		if uint64(len(state.(*expected).entries)) != result.(uint64) {
			fmt.Printf("sizeCommandPostCondition: expected=%d, actual=%d\n", uint64(len(state.(*expected).entries)), result.(uint64))
			return &gopter.PropResult{Status: gopter.PropFalse}
		}
		return &gopter.PropResult{Status: gopter.PropTrue}
	},
}

var ValidateCommand = &commands.ProtoCommand{
	Name: "Validate",
	RunFunc: func(s commands.SystemUnderTest) commands.Result {
		s.(*system).cmdCount++
		return s.(*system).m.validate(ctx)
	},
	NextStateFunc:    func(state commands.State) commands.State { return state },
	PreConditionFunc: func(state commands.State) bool { return true },
	PostConditionFunc: func(state commands.State, result commands.Result) *gopter.PropResult {
		return okResult(result, "Validate")
	},
}

type insertCommand struct {
	Key   uint
	Value uint
}

func (c insertCommand) Run(s commands.SystemUnderTest) commands.Result {
	err := s.(*system).m.Apply(ctx, []BatchEntry{{Key: testKey(c.Key), Op: Put, Value: testValue(c.Value)}}, nil)
	if err != nil {
		return err
	}
	s.(*system).cmdCount++
	return nil
}

func (c insertCommand) NextState(state commands.State) commands.State {
	state.(*expected).entries[c.Key] = c.Value
	return state
}

func (c insertCommand) PreCondition(state commands.State) bool {
	return true
}

func (c insertCommand) PostCondition(state commands.State, result commands.Result) *gopter.PropResult {
	return okResult(result, c.String())
}

func (c insertCommand) String() string {
	return fmt.Sprintf("Insert(%d,%d)", c.Key, c.Value)
}

type deleteCommand uint

func (key deleteCommand) Run(s commands.SystemUnderTest) commands.Result {
	err := s.(*system).m.Apply(ctx, []BatchEntry{{Key: testKey(uint(key)), Op: Delete}}, nil)
	if err != nil {
		return err
	}
	s.(*system).cmdCount++
	return nil
}

func (key deleteCommand) NextState(state commands.State) commands.State {
	delete(state.(*expected).entries, uint(key))
	return state
}

func (key deleteCommand) PreCondition(state commands.State) bool {
	return true
}

func (key deleteCommand) PostCondition(state commands.State, result commands.Result) *gopter.PropResult {
	return okResult(result, key.String())
}

func (key deleteCommand) String() string {
	return fmt.Sprintf("Delete(%d)", key)
}

type getResult struct {
	value []byte
	found bool
	err   error
}

type getCommand uint

func (key getCommand) Run(s commands.SystemUnderTest) commands.Result {
	value, found, err := s.(*system).m.Get(ctx, testKey(uint(key)))
	s.(*system).cmdCount++
	return getResult{value, found, err}
}

func (key getCommand) NextState(state commands.State) commands.State {
	return state
}

func (key getCommand) PreCondition(state commands.State) bool {
	return true
}

func (key getCommand) PostCondition(state commands.State, result commands.Result) *gopter.PropResult {
	r := result.(getResult)
	want, present := state.(*expected).entries[uint(key)]
	if r.err != nil || r.found != present ||
		present && !bytes.Equal(r.value, testValue(want)) {
		fmt.Printf("getCommandPostCondition(%d): expected=%v/%v, actual=%+v\n", key, present, want, r)
		return &gopter.PropResult{Status: gopter.PropFalse}
	}
	return &gopter.PropResult{Status: gopter.PropTrue}
}

func (key getCommand) String() string {
	return fmt.Sprintf("Get(%d)", key)
}

type proveCommand uint

func (key proveCommand) Run(s commands.SystemUnderTest) commands.Result {
	m := s.(*system).m
	s.(*system).cmdCount++
	root, err := m.RootHash()
	if err != nil {
		return getResult{err: err}
	}
	proof, err := m.Prove(ctx, [][]byte{testKey(uint(key))})
	if err != nil {
		return getResult{err: err}
	}
	value, found, err := VerifyProof(root, proof, testKey(uint(key)))
	return getResult{value, found, err}
}

func (key proveCommand) NextState(state commands.State) commands.State {
	return state
}

func (key proveCommand) PreCondition(state commands.State) bool {
	return true
}

func (key proveCommand) PostCondition(state commands.State, result commands.Result) *gopter.PropResult {
	return getCommand(key).PostCondition(state, result)
}

func (key proveCommand) String() string {
	return fmt.Sprintf("Prove(%d)", key)
}

var genInsert = gopter.CombineGens(
	gen.UIntRange(0, uimax),
	gen.UIntRange(0, uimax),
).Map(func(values []interface{}) commands.Command {
	return insertCommand{Key: values[0].(uint), Value: values[1].(uint)}
})

func uintCommandGen(toCommand func(uint) commands.Command) gopter.Gen {
	return gen.UIntRange(0, uimax).Map(func(value uint) commands.Command {
		return toCommand(value)
	})
}

var (
	genDelete = uintCommandGen(func(v uint) commands.Command { return deleteCommand(v) })
	genGet    = uintCommandGen(func(v uint) commands.Command { return getCommand(v) })
	genProve  = uintCommandGen(func(v uint) commands.Command { return proveCommand(v) })
)

var mastCommands = &commands.ProtoCommands{
	NewSystemUnderTestFunc: func(initialState commands.State) commands.SystemUnderTest {
		backend := NewInMemoryStore()
		m := newTree(Config{Backend: backend, BranchFactor: 3})
		for key, value := range initialState.(*expected).entries {
			err := m.Apply(ctx, []BatchEntry{{Key: testKey(key), Op: Put, Value: testValue(value)}}, nil)
			if err != nil {
				panic(err)
			}
		}
		progress("NewSystem")
		return &system{m: m, backend: backend}
	},
	DestroySystemUnderTestFunc: func(s commands.SystemUnderTest) {
		m := s.(*system).m
		if m.height > maxHeight {
			maxHeight = m.height
		}
		cmdCount += s.(*system).cmdCount
	},
	InitialStateGen: gen.MapOf(gen.UIntRange(0, uimax), gen.UIntRange(0, uimax)).Map(func(entries map[uint]uint) *expected {
		return &expected{entries: entries}
	}),
	InitialPreConditionFunc: func(state commands.State) bool {
		_ = state.(*expected)
		return true
	},
	GenCommandFunc: func(state commands.State) gopter.Gen {
		return gen.Weighted(
			[]gen.WeightedGen{
				{Weight: 100, Gen: genInsert},
				{Weight: 60, Gen: genDelete},
				{Weight: 100, Gen: genGet},
				{Weight: 20, Gen: genProve},
				{Weight: 2, Gen: gen.Const(FlushCommand)},
				{Weight: 1, Gen: gen.Const(ReopenCommand)},
				{Weight: 5, Gen: gen.Const(ValidateCommand)},
				{Weight: 20, Gen: gen.Const(SizeCommand)},
			},
		)
	},
}

func TestExerciser(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	if !testing.Short() {
		parameters.MaxSize = 1024
	}
	properties := gopter.NewProperties(parameters)
	properties.Property("mast exerciser", commands.Prop(mastCommands))
	properties.TestingRun(t)
	if !t.Failed() {
		assert.GreaterOrEqual(t, int(maxHeight), 2)
		t.Logf("biggest tree height: %d, successful commands: %d", maxHeight, cmdCount)
	}
}
