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

package analysis

import "github.com/ArthurS1/bytecode-localopt/bytecode"

// step simulates ins against the frame immediately before it, producing the
// frame immediately before the next instruction, and records the
// producer/consumer edges exposed along the way. A store is not recorded as
// a consumer of the value it writes into its local.
func (a *Analyzer) step(before *Frame, ins *bytecode.Instruction) *Frame {
	f := before.clone()

	pop := func(n int) []StackEntry {
		if n > len(f.stack) {
			n = len(f.stack)
		}
		popped := f.stack[len(f.stack)-n:]
		f.stack = f.stack[:len(f.stack)-n]
		return popped
	}
	push := func(e StackEntry) { f.stack = append(f.stack, e) }
	newValue := func(size int) StackEntry {
		return StackEntry{class: a.intern([]Producer{NormalProducer(ins)}), Size: size}
	}
	consumeAll := func(entries []StackEntry) {
		for _, e := range entries {
			a.recordUse(e.class, ins)
		}
	}

	switch ins.VariantKind() {
	case bytecode.KindLabel:
		// no stack effect

	case bytecode.KindVar:
		if bytecode.IsLoad(ins) {
			size := 1
			if ins.IsSize2LoadOrStore() {
				size = 2
			}
			c := f.localClass(ins.Slot)
			a.recordUse(c, ins)
			push(StackEntry{class: c, Size: size})
		} else { // store
			size := 1
			if ins.IsSize2LoadOrStore() {
				size = 2
			}
			popped := pop(1)
			var c classID = a.intern([]Producer{UninitializedLocalProducer()})
			if len(popped) == 1 {
				c = popped[0].class
			}
			if ins.Slot < len(f.locals) {
				f.locals[ins.Slot] = c
			}
			_ = size
		}

	case bytecode.KindIncrement:
		a.recordUse(f.localClass(ins.Slot), ins)
		f.locals[ins.Slot] = a.intern([]Producer{NormalProducer(ins)})

	case bytecode.KindConstPush:
		size := 1
		if ins.ConstKind == bytecode.ConstLong || ins.ConstKind == bytecode.ConstDouble {
			size = 2
		}
		push(newValue(size))

	case bytecode.KindType:
		switch ins.Kind {
		case bytecode.NEW:
			push(newValue(1))
		case bytecode.ANEWARRAY, bytecode.CHECKCAST:
			consumeAll(pop(1))
			push(newValue(1))
		case bytecode.INSTANCEOF:
			consumeAll(pop(1))
			push(newValue(1))
		}

	case bytecode.KindMultiANewArray:
		consumeAll(pop(ins.Dims))
		push(newValue(1))

	case bytecode.KindMethodCall:
		argc := argCount(ins.Descriptor)
		n := argc
		if !ins.IsStatic {
			n++
		}
		consumeAll(pop(n))
		words := bytecode.DescriptorReturnWords(ins.Descriptor)
		if words > 0 {
			push(newValue(words))
		}

	case bytecode.KindInvokeDynamic:
		argc := argCount(ins.Descriptor)
		consumeAll(pop(argc))
		words := bytecode.DescriptorReturnWords(ins.Descriptor)
		if words > 0 {
			push(newValue(words))
		}

	case bytecode.KindJump:
		n := 1
		switch ins.Kind {
		case bytecode.GOTO, bytecode.JSR:
			n = 0
		case bytecode.IF_ICMPEQ, bytecode.IF_ICMPNE, bytecode.IF_ICMPLT, bytecode.IF_ICMPGE,
			bytecode.IF_ICMPGT, bytecode.IF_ICMPLE, bytecode.IF_ACMPEQ, bytecode.IF_ACMPNE:
			n = 2
		}
		consumeAll(pop(n))

	case bytecode.KindTableSwitch, bytecode.KindLookupSwitch:
		consumeAll(pop(1))

	default: // KindPlain
		f = a.stepPlain(f, ins, pop, push, newValue, consumeAll)
	}

	return f
}

func argCount(descriptor string) int {
	n := 0
	i := 1
	for i < len(descriptor) && descriptor[i] != ')' {
		switch descriptor[i] {
		case 'L':
			for i < len(descriptor) && descriptor[i] != ';' {
				i++
			}
			i++
		case '[':
			for i < len(descriptor) && descriptor[i] == '[' {
				i++
			}
			continue
		default:
			i++
		}
		n++
	}
	return n
}

func (a *Analyzer) stepPlain(f *Frame, ins *bytecode.Instruction,
	pop func(int) []StackEntry, push func(StackEntry), newValue func(int) StackEntry,
	consumeAll func([]StackEntry)) *Frame {

	switch ins.Kind {
	case bytecode.NOP:
		// no effect
	case bytecode.POP:
		consumeAll(pop(1))
	case bytecode.POP2:
		consumeAll(popWords(f, pop, 2))
	case bytecode.DUP:
		top := pop(1)[0]
		consumeAll([]StackEntry{top})
		push(StackEntry{class: a.intern([]Producer{DupOutputProducer(ins, 0)}), Size: top.Size})
		push(StackEntry{class: a.intern([]Producer{DupOutputProducer(ins, 1)}), Size: top.Size})
	case bytecode.DUP2:
		entries := popWords(f, pop, 2)
		if len(entries) == 1 {
			// a single size-2 value duplicated into two size-2 copies: give
			// each copy its own producer, same as DUP (§4.4's
			// dup2SourceIsSize2 eligibility case).
			source := entries[0]
			consumeAll([]StackEntry{source})
			push(StackEntry{class: a.intern([]Producer{DupOutputProducer(ins, 0)}), Size: source.Size})
			push(StackEntry{class: a.intern([]Producer{DupOutputProducer(ins, 1)}), Size: source.Size})
			break
		}
		for _, e := range entries {
			push(e)
		}
		for _, e := range entries {
			push(e)
		}
	case bytecode.SWAP, bytecode.DUP_X1, bytecode.DUP_X2, bytecode.DUP2_X1, bytecode.DUP2_X2:
		// exotic stack-shuffle opcodes: conservatively treat operands as
		// fully consumed and replaced by fresh, un-aliased values (Non-goal:
		// "rewriting of the exotic stack-duplication opcodes").
		n := 2
		popped := pop(n)
		consumeAll(popped)
		for range popped {
			push(newValue(1))
		}
	case bytecode.ATHROW:
		consumeAll(pop(1))
	case bytecode.ARRAYLENGTH:
		consumeAll(pop(1))
		push(newValue(1))
	case bytecode.IALOAD, bytecode.FALOAD, bytecode.AALOAD, bytecode.BALOAD, bytecode.CALOAD, bytecode.SALOAD:
		consumeAll(pop(2))
		push(newValue(1))
	case bytecode.LALOAD, bytecode.DALOAD:
		consumeAll(pop(2))
		push(newValue(2))
	case bytecode.IASTORE, bytecode.FASTORE, bytecode.AASTORE, bytecode.BASTORE, bytecode.CASTORE, bytecode.SASTORE:
		consumeAll(pop(3))
	case bytecode.LASTORE, bytecode.DASTORE:
		consumeAll(pop(3))
	case bytecode.IRETURN, bytecode.FRETURN, bytecode.ARETURN, bytecode.LRETURN, bytecode.DRETURN:
		consumeAll(pop(1))
	case bytecode.RETURN:
		// no effect
	case bytecode.MONITORENTER, bytecode.MONITOREXIT:
		consumeAll(pop(1))
	case bytecode.NEWARRAY:
		consumeAll(pop(1))
		push(newValue(1))
	case bytecode.I2L, bytecode.I2D, bytecode.F2L, bytecode.F2D:
		consumeAll(pop(1))
		push(newValue(2))
	case bytecode.L2I, bytecode.L2F, bytecode.D2I, bytecode.D2F:
		consumeAll(pop(1))
		push(newValue(1))
	case bytecode.LNEG, bytecode.DNEG, bytecode.L2D, bytecode.D2L:
		consumeAll(pop(1))
		push(newValue(2))
	case bytecode.INEG, bytecode.FNEG, bytecode.I2F, bytecode.F2I, bytecode.I2B, bytecode.I2C, bytecode.I2S:
		consumeAll(pop(1))
		push(newValue(1))
	case bytecode.LCMP, bytecode.DCMPL, bytecode.DCMPG:
		consumeAll(pop(2))
		push(newValue(1))
	case bytecode.FCMPL, bytecode.FCMPG:
		consumeAll(pop(2))
		push(newValue(1))
	case bytecode.IDIV, bytecode.LDIV, bytecode.IREM, bytecode.LREM,
		bytecode.IADD, bytecode.ISUB, bytecode.IMUL, bytecode.IAND, bytecode.IOR, bytecode.IXOR,
		bytecode.ISHL, bytecode.ISHR, bytecode.IUSHR,
		bytecode.LADD, bytecode.LSUB, bytecode.LMUL, bytecode.LAND, bytecode.LOR, bytecode.LXOR,
		bytecode.LSHL, bytecode.LSHR, bytecode.LUSHR,
		bytecode.FADD, bytecode.FSUB, bytecode.FMUL, bytecode.FDIV, bytecode.FREM,
		bytecode.DADD, bytecode.DSUB, bytecode.DMUL, bytecode.DDIV, bytecode.DREM:
		consumeAll(pop(2))
		size := 1
		if is64(ins.Kind) {
			size = 2
		}
		push(newValue(size))
	case bytecode.GETSTATIC:
		push(newValue(1))
	case bytecode.GETFIELD:
		consumeAll(pop(1))
		push(newValue(1))
	case bytecode.PUTSTATIC:
		consumeAll(pop(1))
	case bytecode.PUTFIELD:
		consumeAll(pop(2))
	}
	return f
}

func is64(op bytecode.Opcode) bool {
	switch op {
	case bytecode.LADD, bytecode.LSUB, bytecode.LMUL, bytecode.LDIV, bytecode.LREM,
		bytecode.LAND, bytecode.LOR, bytecode.LXOR, bytecode.LSHL, bytecode.LSHR, bytecode.LUSHR,
		bytecode.DADD, bytecode.DSUB, bytecode.DMUL, bytecode.DDIV, bytecode.DREM:
		return true
	}
	return false
}

// popWords pops enough stack entries to total wantWords 32-bit words,
// honoring each entry's declared Size (so POP2 of a single long/double pops
// one entry, while POP2 of two ints pops two).
func popWords(f *Frame, pop func(int) []StackEntry, wantWords int) []StackEntry {
	words := 0
	n := 0
	for n < len(f.stack) && words < wantWords {
		n++
		words += f.stack[len(f.stack)-n].Size
	}
	return pop(n)
}
