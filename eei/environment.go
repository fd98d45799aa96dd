// Package eei implements the Ethereum Environment Interface as a host
// module: contract code compiled to wasm imports these functions from the
// "ethereum" namespace.
package eei

import "errors"

// WordSize is the size of an EVM storage key and value.
const WordSize = 32

var ErrOutOfGas = errors.New("out of gas")

// Environment is the per-call EVM context shared by all EEI host functions.
type Environment struct {
	Caller    [20]byte
	CallValue [16]byte
	CallData  []byte

	GasLimit uint64
	GasUsed  uint64

	// ReturnData is what finish or revert recorded; Reverted distinguishes
	// the two.
	ReturnData []byte
	Reverted   bool

	Storage map[[WordSize]byte][WordSize]byte
}

func NewEnvironment() *Environment {
	return &Environment{
		Storage: map[[WordSize]byte][WordSize]byte{},
	}
}

// GasLeft returns the remaining gas, zero when the budget is exhausted.
func (e *Environment) GasLeft() uint64 {
	if e.GasUsed >= e.GasLimit {
		return 0
	}
	return e.GasLimit - e.GasUsed
}

// UseGas charges amount against the budget.
func (e *Environment) UseGas(amount uint64) error {
	if amount > e.GasLeft() {
		e.GasUsed = e.GasLimit
		return ErrOutOfGas
	}
	e.GasUsed += amount
	return nil
}

// Reset clears the per-call outputs so the environment can host another
// execution.
func (e *Environment) Reset() {
	e.ReturnData = nil
	e.Reverted = false
	e.GasUsed = 0
}
