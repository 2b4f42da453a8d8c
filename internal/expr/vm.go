// Package expr evaluates compiled world-state expression programs.
package expr

/*
 * World-state expression VM.
 *
 * A program is an opaque byte sequence compiled elsewhere:
 *
 *   program := enable:u8 relop { logic:u8 relop }      (logic 0 terminates)
 *   relop   := value cmp:u8 [value]                    (cmp 0 = no right side)
 *   value   := single op:u8 [single]                   (op 0 = no right side)
 *   single  := 1 const:i32 | 2 worldstate:u32 | 3 func:u32 single single
 *
 * All integers are little-endian. Evaluation is a recursive descent over one
 * cursor; nothing is allocated besides the cursor itself. Any malformed
 * input (short buffer, unknown tag, nesting overflow) fails the whole
 * program closed: Eval returns false, Evaluate returns the error.
 */

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/solatis/gatekeeper/internal/types"
)

// Program is a compiled expression.
type Program []byte

// Value tags.
const (
	ValueConstant   uint8 = 1
	ValueWorldState uint8 = 2
	ValueFunction   uint8 = 3
)

// Comparison operators.
const (
	CmpNone uint8 = iota
	CmpEqual
	CmpNotEqual
	CmpLess
	CmpLessOrEqual
	CmpGreater
	CmpGreaterOrEqual
)

// Arithmetic operators.
const (
	OpNone uint8 = iota
	OpSum
	OpSubtract
	OpMultiply
	OpDivide
	OpRemainder
)

// Logic operators chaining relational groups.
const (
	LogicNone uint8 = iota
	LogicAnd
	LogicOr
	LogicXor
)

// Function ids.
const (
	FuncNone uint32 = iota
	FuncRandom
	FuncMonth
	FuncDay
	FuncTimeOfDay
	FuncRegion
	FuncClockHour
	FuncDifficultyID
	FuncHolidayStart
	FuncHolidayLeft
	FuncHolidayActive
	FuncTimerCurrentTime
	FuncWeekNumber
	FuncExpression
	FuncSeededRandom
)

var (
	// ErrUnknownValueType indicates a single value with an unknown tag.
	ErrUnknownValueType = errors.New("unknown expression value type")

	// ErrUnknownOperator indicates an arithmetic, comparison or logic byte
	// outside its enumeration.
	ErrUnknownOperator = errors.New("unknown expression operator")

	// ErrUnknownFunction indicates a function id outside the enumeration.
	ErrUnknownFunction = errors.New("unknown expression function")

	// ErrTooDeep indicates nested expressions beyond MaxExpressionDepth.
	ErrTooDeep = errors.New("expression nesting too deep")

	// ErrEmpty indicates a program with no bytes.
	ErrEmpty = errors.New("expression program empty")
)

// Decode parses the stored hex text form of a program.
func Decode(s string) (Program, error) {
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrMalformedExpression, err)
	}
	return Program(b), nil
}

// Eval evaluates program against m. Malformed programs evaluate false.
func Eval(program Program, m Map, env Environment, programs Programs) bool {
	ok, err := Evaluate(program, m, env, programs)
	return err == nil && ok
}

// Evaluate evaluates program and reports why a malformed program failed.
// A disabled program returns false without reading past the enable flag.
func Evaluate(program Program, m Map, env Environment, programs Programs) (bool, error) {
	vm := machine{m: m, env: env, programs: programs}
	return vm.run(program, 0)
}

type machine struct {
	m        Map
	env      Environment
	programs Programs
}

func (vm *machine) run(program Program, depth int) (bool, error) {
	if depth > types.MaxExpressionDepth {
		return false, ErrTooDeep
	}
	if len(program) == 0 {
		return false, ErrEmpty
	}
	r := reader{buf: program}

	enabled, err := r.u8()
	if err != nil {
		return false, err
	}
	if enabled == 0 {
		return false, nil
	}

	result, err := vm.relOp(&r, depth)
	if err != nil {
		return false, err
	}

	for r.remaining() >= 1 {
		logic, err := r.u8()
		if err != nil {
			return false, err
		}
		if logic == LogicNone {
			break
		}
		next, err := vm.relOp(&r, depth)
		if err != nil {
			return false, err
		}
		switch logic {
		case LogicAnd:
			result = result && next
		case LogicOr:
			result = result || next
		case LogicXor:
			result = result != next
		default:
			return false, ErrUnknownOperator
		}
	}

	return result, nil
}

// relOp reads value [cmp value] and produces a boolean.
func (vm *machine) relOp(r *reader, depth int) (bool, error) {
	left, err := vm.value(r, depth)
	if err != nil {
		return false, err
	}
	cmp, err := r.u8()
	if err != nil {
		return false, err
	}
	if cmp == CmpNone {
		return left != 0, nil
	}
	right, err := vm.value(r, depth)
	if err != nil {
		return false, err
	}

	switch cmp {
	case CmpEqual:
		return left == right, nil
	case CmpNotEqual:
		return left != right, nil
	case CmpLess:
		return left < right, nil
	case CmpLessOrEqual:
		return left <= right, nil
	case CmpGreater:
		return left > right, nil
	case CmpGreaterOrEqual:
		return left >= right, nil
	default:
		return false, ErrUnknownOperator
	}
}

// value reads single [op single]. Division and remainder by zero yield 0.
func (vm *machine) value(r *reader, depth int) (int32, error) {
	left, err := vm.single(r, depth)
	if err != nil {
		return 0, err
	}
	op, err := r.u8()
	if err != nil {
		return 0, err
	}
	if op == OpNone {
		return left, nil
	}
	right, err := vm.single(r, depth)
	if err != nil {
		return 0, err
	}

	switch op {
	case OpSum:
		return left + right, nil
	case OpSubtract:
		return left - right, nil
	case OpMultiply:
		return left * right, nil
	case OpDivide:
		if right == 0 {
			return 0, nil
		}
		return left / right, nil
	case OpRemainder:
		if right == 0 {
			return 0, nil
		}
		return left % right, nil
	default:
		return 0, ErrUnknownOperator
	}
}

func (vm *machine) single(r *reader, depth int) (int32, error) {
	tag, err := r.u8()
	if err != nil {
		return 0, err
	}

	switch tag {
	case ValueConstant:
		return r.i32()
	case ValueWorldState:
		id, err := r.u32()
		if err != nil {
			return 0, err
		}
		if vm.env == nil {
			return 0, nil
		}
		return vm.env.LookupWorldState(id, vm.m), nil
	case ValueFunction:
		fn, err := r.u32()
		if err != nil {
			return 0, err
		}
		arg1, err := vm.single(r, depth)
		if err != nil {
			return 0, err
		}
		arg2, err := vm.single(r, depth)
		if err != nil {
			return 0, err
		}
		return vm.call(fn, arg1, arg2, depth)
	default:
		return 0, ErrUnknownValueType
	}
}
