// Copyright 2025 The bytecode-localopt Authors
// This file is part of the bytecode-localopt library.
//
// The bytecode-localopt library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The bytecode-localopt library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the bytecode-localopt library. If not, see <http://www.gnu.org/licenses/>.

package bytecode

import (
	"fmt"
	"math"

	"github.com/holiman/uint256"
)

// Kind tags the variant an Instruction holds. Instructions are a single
// struct with per-kind fields rather than an interface hierarchy: the four
// optimizer passes switch on Kind at each use site instead of relying on
// subtype dispatch (mirrors how the teacher's MIR package tags a MIR node
// with an op/kind pair and a flat field set instead of per-opcode types).
type Kind uint8

const (
	KindPlain Kind = iota
	KindVar
	KindIncrement
	KindConstPush
	KindType
	KindMultiANewArray
	KindMethodCall
	KindInvokeDynamic
	KindJump
	KindTableSwitch
	KindLookupSwitch
	KindLabel
)

// ConstKind classifies a KindConstPush instruction's payload type.
type ConstKind uint8

const (
	ConstInt ConstKind = iota
	ConstFloat
	ConstLong
	ConstDouble
	ConstString
	ConstOther // MethodType/MethodHandle/Class literals loaded via LDC
)

// Label is the jump-target pseudo-instruction handle. It has no stack effect
// of its own; it exists so jumps and switches can reference a stable target
// identity instead of an index (§3 invariant: "never by index").
type Label struct{}

// Instruction is the tagged variant described in §3. Exactly one group of
// kind-specific fields below is meaningful, selected by Kind. Identity is the
// pointer itself: instructions are never compared or keyed by position.
type Instruction struct {
	Kind Opcode // the concrete opcode, e.g. ILOAD, POP, IDIV, ASTORE

	kind Kind // discriminant for the struct-shape switch

	prev, next *Instruction

	// KindVar / KindIncrement
	Slot  int
	Delta int // KindIncrement only

	// KindConstPush
	ConstKind ConstKind
	IntVal    int32
	LongVal   int64
	FloatVal  float32
	DoubleVal float64
	StrVal    string
	// Bits holds the canonical 64-bit payload of a Long/Double constant (a
	// double's IEEE 754 bit pattern) the way MIR.Value keeps a *uint256.Int
	// alongside its raw payload bytes. It is nil for every other constant
	// kind; none of the four passes reads it.
	Bits *uint256.Int

	// KindType / KindMultiANewArray
	TypeName string
	Dims     int // KindMultiANewArray only

	// KindMethodCall
	Owner      string
	Name       string
	Descriptor string
	IsStatic   bool
	IsInterface bool

	// KindInvokeDynamic
	BootstrapName string // e.g. "java/lang/invoke/LambdaMetafactory.metafactory"
	BootstrapArgs []string

	// KindJump
	Target *Label

	// KindTableSwitch / KindLookupSwitch
	Default *Label
	Keys    []int32 // KindLookupSwitch only
	Low     int32   // KindTableSwitch only
	Targets []*Label

	// KindLabel
	Self *Label
}

// NewPlain builds a plain, no-immediate instruction (e.g. IADD, POP, DUP, RETURN).
func NewPlain(op Opcode) *Instruction {
	return &Instruction{Kind: op, kind: KindPlain}
}

// NewVar builds a var-instruction (load or store of a local slot).
func NewVar(op Opcode, slot int) *Instruction {
	return &Instruction{Kind: op, kind: KindVar, Slot: slot}
}

// NewIncrement builds an IINC.
func NewIncrement(slot, delta int) *Instruction {
	return &Instruction{Kind: IINC, kind: KindIncrement, Slot: slot, Delta: delta}
}

// NewIntConst builds an integer constant push, choosing ICONST/BIPUSH/SIPUSH/LDC
// the way a class-file assembler would, purely for display; passes treat all
// ConstPush kinds uniformly regardless of which concrete opcode got picked.
func NewIntConst(v int32) *Instruction {
	op := LDC
	switch {
	case v >= -1 && v <= 5:
		op = Opcode(int(ICONST_0) + int(v))
		if v == -1 {
			op = ICONST_M1
		}
	case v >= -128 && v <= 127:
		op = BIPUSH
	case v >= -32768 && v <= 32767:
		op = SIPUSH
	}
	return &Instruction{Kind: op, kind: KindConstPush, ConstKind: ConstInt, IntVal: v}
}

// NewLongConst builds a long constant push.
func NewLongConst(v int64) *Instruction {
	op := LDC2_W
	if v == 0 {
		op = LCONST_0
	} else if v == 1 {
		op = LCONST_1
	}
	bits := uint256.NewInt(uint64(v))
	return &Instruction{Kind: op, kind: KindConstPush, ConstKind: ConstLong, LongVal: v, Bits: bits}
}

// NewDoubleConst builds a double constant push.
func NewDoubleConst(v float64) *Instruction {
	op := LDC2_W
	if v == 0 {
		op = DCONST_0
	} else if v == 1 {
		op = DCONST_1
	}
	bits := uint256.NewInt(math.Float64bits(v))
	return &Instruction{Kind: op, kind: KindConstPush, ConstKind: ConstDouble, DoubleVal: v, Bits: bits}
}

// NewFloatConst builds a float constant push.
func NewFloatConst(v float32) *Instruction {
	op := LDC
	if v == 0 {
		op = FCONST_0
	} else if v == 1 {
		op = FCONST_1
	} else if v == 2 {
		op = FCONST_2
	}
	return &Instruction{Kind: op, kind: KindConstPush, ConstKind: ConstFloat, FloatVal: v}
}

// NewStringConst builds a string constant push.
func NewStringConst(v string) *Instruction {
	return &Instruction{Kind: LDC, kind: KindConstPush, ConstKind: ConstString, StrVal: v}
}

// NewOtherConst builds an LDC of a class/MethodType/MethodHandle literal. The
// "other" bucket is exactly what §9's Open Question discusses: it is treated
// conservatively as potentially having resolution side effects.
func NewOtherConst(textual string) *Instruction {
	return &Instruction{Kind: LDC, kind: KindConstPush, ConstKind: ConstOther, StrVal: textual}
}

// NewNull builds ACONST_NULL as a constant push so it participates in the
// same producer-kind switch as every other constant (§4.4's constant-push row).
func NewNull() *Instruction {
	return &Instruction{Kind: ACONST_NULL, kind: KindConstPush, ConstKind: ConstOther, StrVal: "null"}
}

// NewType builds a NEW / ANEWARRAY / CHECKCAST / INSTANCEOF instruction.
func NewType(op Opcode, internalName string) *Instruction {
	return &Instruction{Kind: op, kind: KindType, TypeName: internalName}
}

// NewMultiANewArray builds a MULTIANEWARRAY.
func NewMultiANewArray(internalName string, dims int) *Instruction {
	return &Instruction{Kind: MULTIANEWARRAY, kind: KindMultiANewArray, TypeName: internalName, Dims: dims}
}

// NewMethodCall builds an INVOKE* call.
func NewMethodCall(op Opcode, owner, name, descriptor string, itf bool) *Instruction {
	return &Instruction{
		Kind: op, kind: KindMethodCall, Owner: owner, Name: name, Descriptor: descriptor,
		IsStatic: op == INVOKESTATIC, IsInterface: itf,
	}
}

// NewInvokeDynamic builds an INVOKEDYNAMIC.
func NewInvokeDynamic(name, descriptor, bootstrapName string, bootstrapArgs []string) *Instruction {
	return &Instruction{
		Kind: INVOKEDYNAMIC, kind: KindInvokeDynamic, Name: name, Descriptor: descriptor,
		BootstrapName: bootstrapName, BootstrapArgs: bootstrapArgs,
	}
}

// NewJump builds a single-target jump (GOTO, JSR, or an IF* family member).
func NewJump(op Opcode, target *Label) *Instruction {
	return &Instruction{Kind: op, kind: KindJump, Target: target}
}

// NewLabel creates a fresh jump-target pseudo-instruction, matching the
// external collaborator newLabelNode (§6).
func NewLabel() *Instruction {
	lbl := &Label{}
	return &Instruction{Kind: NOP, kind: KindLabel, Self: lbl}
}

// NewTableSwitch builds a TABLESWITCH.
func NewTableSwitch(low int32, targets []*Label, dflt *Label) *Instruction {
	return &Instruction{Kind: TABLESWITCH, kind: KindTableSwitch, Low: low, Targets: targets, Default: dflt}
}

// NewLookupSwitch builds a LOOKUPSWITCH.
func NewLookupSwitch(keys []int32, targets []*Label, dflt *Label) *Instruction {
	return &Instruction{Kind: LOOKUPSWITCH, kind: KindLookupSwitch, Keys: keys, Targets: targets, Default: dflt}
}

// VariantKind exposes the struct-shape discriminant for callers outside this
// package (the analyzer and the four passes) that need to switch on it.
func (i *Instruction) VariantKind() Kind { return i.kind }

// Prev and Next walk the doubly linked instruction list. They return nil at
// the ends, never an index — per §3 and the Design Notes, identity is the
// pointer, and the list is the only ordering authority.
func (i *Instruction) Prev() *Instruction { return i.prev }
func (i *Instruction) Next() *Instruction { return i.next }

// Size2 reports whether a KindConstPush produces a size-2 (long/double) stack
// value. The analyzer's DUP2 rule reads the stack entry's size instead.
func (i *Instruction) Size2() bool {
	return i.kind == KindConstPush && (i.ConstKind == ConstLong || i.ConstKind == ConstDouble)
}

// IsSize2LoadOrStore reports whether a var-instruction addresses a size-2
// local slot (long/double), per the §6 external interface of the same name.
func (i *Instruction) IsSize2LoadOrStore() bool {
	if i.kind != KindVar {
		return false
	}
	switch i.Kind {
	case LLOAD, DLOAD, LSTORE, DSTORE:
		return true
	}
	return false
}

// String renders a disassembly-style textual form, used for diagnostics
// (§7) and for assertion messages on invariant violations.
func (i *Instruction) String() string {
	switch i.kind {
	case KindLabel:
		return fmt.Sprintf("L%p:", i.Self)
	case KindVar, KindIncrement:
		if i.kind == KindIncrement {
			return fmt.Sprintf("IINC %d, %d", i.Slot, i.Delta)
		}
		return fmt.Sprintf("%s %d", i.Kind, i.Slot)
	case KindConstPush:
		return fmt.Sprintf("%s", i.Kind)
	case KindType:
		return fmt.Sprintf("%s %s", i.Kind, i.TypeName)
	case KindMultiANewArray:
		return fmt.Sprintf("MULTIANEWARRAY %s %d", i.TypeName, i.Dims)
	case KindMethodCall:
		return fmt.Sprintf("%s %s.%s%s", i.Kind, i.Owner, i.Name, i.Descriptor)
	case KindInvokeDynamic:
		return fmt.Sprintf("INVOKEDYNAMIC %s%s [%s]", i.Name, i.Descriptor, i.BootstrapName)
	case KindJump:
		return fmt.Sprintf("%s -> L%p", i.Kind, i.Target)
	case KindTableSwitch:
		return "TABLESWITCH"
	case KindLookupSwitch:
		return "LOOKUPSWITCH"
	default:
		return i.Kind.String()
	}
}
