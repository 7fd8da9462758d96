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

package localopt

import (
	"github.com/ArthurS1/bytecode-localopt/analysis"
	"github.com/ArthurS1/bytecode-localopt/bytecode"
)

// Oracles bundles the "external oracle" predicates §6 and the GLOSSARY name
// but leave unspecified ("Whether the source classifies a given method is
// not described here"): side-effect-free call/constructor recognition,
// boxed-unit and module-load detection, boxing/unboxing call matching, and
// the class-tag-newArray / lambda-metafactory / runtime-array-op patterns.
// No class file is loaded (§1 is explicit that the parser is out of scope),
// so every predicate here is a name-based allow-list keyed by owner/name/
// descriptor rather than a real type hierarchy query. DefaultOracles()
// supplies the allow-lists a JVM-targeting source language (the family this
// spec's GLOSSARY describes: boxed units, module loads, ClassTag) actually
// needs.
type Oracles struct {
	// SideEffectFreeCalls keys are "Owner.Name Descriptor"; a call matching
	// one is known not to throw, allocate observably, do I/O, or touch
	// reachable state except via its arguments.
	SideEffectFreeCalls map[string]bool

	// SideEffectFreeConstructors keys are the constructed type's internal
	// name; its <init> never escapes this allow-list's guarantee.
	SideEffectFreeConstructors map[string]bool

	// BoxedUnitFields keys are "Owner.Name" for a GETSTATIC/GETFIELD whose
	// value is always the singleton boxed-Unit instance.
	BoxedUnitFields map[string]bool

	// ModuleLoadFields keys are "Owner.Name" for a GETSTATIC whose
	// class-initialization side effect may be skipped per
	// external.Config.ModulesAllowSkipInitialization.
	ModuleLoadFields map[string]bool

	// ScalaUnboxCalls keys are "Owner.Name" for scala.runtime.BoxesRunTime's
	// unboxToX family.
	ScalaUnboxCalls map[string]string // value: the boxed-to-primitive cast target's internal name

	// JavaUnboxCalls keys are "Owner.Name" for java.lang.Integer#intValue and
	// its siblings.
	JavaUnboxCalls map[string]bool

	// RuntimeArrayOps keys are "Owner.Name" for ScalaRunTime's boxed
	// array_apply/array_update helpers — §4.3's "runtime array-apply/update
	// calls" whose type-dispatch collapses once the element type is known.
	RuntimeArrayOps map[string]bool
}

// DefaultOracles returns the allow-lists grounded directly in the GLOSSARY's
// own vocabulary (boxed-unit, module-load, ClassTag, Scala/Java unboxing):
// the standard Scala-on-JVM runtime support classes these concepts name.
func DefaultOracles() *Oracles {
	return &Oracles{
		SideEffectFreeCalls: map[string]bool{
			"scala/Predef.wrapIntArray ([I)Lscala/collection/mutable/WrappedArray;": true,
		},
		SideEffectFreeConstructors: map[string]bool{
			"scala/Tuple2":             true,
			"scala/Tuple3":             true,
			"scala/runtime/BoxedUnit":  true,
			"java/lang/StringBuilder":  true,
			"java/lang/Object":         true,
		},
		BoxedUnitFields: map[string]bool{
			"scala/runtime/BoxedUnit.UNIT": true,
		},
		ModuleLoadFields: map[string]bool{},
		ScalaUnboxCalls: map[string]string{
			"scala/runtime/BoxesRunTime.unboxToInt":    "java/lang/Integer",
			"scala/runtime/BoxesRunTime.unboxToLong":   "java/lang/Long",
			"scala/runtime/BoxesRunTime.unboxToFloat":  "java/lang/Float",
			"scala/runtime/BoxesRunTime.unboxToDouble": "java/lang/Double",
			"scala/runtime/BoxesRunTime.unboxToShort":  "java/lang/Short",
			"scala/runtime/BoxesRunTime.unboxToByte":   "java/lang/Byte",
			"scala/runtime/BoxesRunTime.unboxToChar":   "java/lang/Character",
			"scala/runtime/BoxesRunTime.unboxToBoolean": "java/lang/Boolean",
		},
		JavaUnboxCalls: map[string]bool{
			"java/lang/Integer.intValue":     true,
			"java/lang/Long.longValue":       true,
			"java/lang/Float.floatValue":     true,
			"java/lang/Double.doubleValue":   true,
			"java/lang/Short.shortValue":     true,
			"java/lang/Byte.byteValue":       true,
			"java/lang/Character.charValue":  true,
			"java/lang/Boolean.booleanValue": true,
		},
		RuntimeArrayOps: map[string]bool{
			"scala/runtime/ScalaRunTime$.array_apply":  true,
			"scala/runtime/ScalaRunTime$.array_update": true,
		},
	}
}

func ownerName(ins *bytecode.Instruction) string { return ins.Owner + "." + ins.Name }

// IsSideEffectFreeCall is the oracle isSideEffectFreeCall (§6, §4.4's INVOKE* row).
func (o *Oracles) IsSideEffectFreeCall(ins *bytecode.Instruction) bool {
	return o.SideEffectFreeCalls[ownerName(ins)+" "+ins.Descriptor]
}

// IsSideEffectFreeConstructorCall is isSideEffectFreeConstructorCall (§6):
// ins must be an INVOKESPECIAL <init> on a type in the allow-list.
func (o *Oracles) IsSideEffectFreeConstructorCall(ins *bytecode.Instruction) bool {
	if ins.Kind != bytecode.INVOKESPECIAL || ins.Name != "<init>" {
		return false
	}
	return o.SideEffectFreeConstructors[ins.Owner]
}

// IsNewForSideEffectFreeConstructor is isNewForSideEffectFreeConstructor (§6):
// a NEW whose type is itself on the constructor allow-list.
func (o *Oracles) IsNewForSideEffectFreeConstructor(ins *bytecode.Instruction) bool {
	return ins.Kind == bytecode.NEW && o.SideEffectFreeConstructors[ins.TypeName]
}

// IsBoxedUnit matches §4.4's "boxed-unit-field" GETFIELD/GETSTATIC case.
func (o *Oracles) IsBoxedUnit(ins *bytecode.Instruction) bool {
	if ins.Kind != bytecode.GETSTATIC && ins.Kind != bytecode.GETFIELD {
		return false
	}
	return o.BoxedUnitFields[ins.Owner+"."+ins.Name]
}

// IsModuleLoad matches §4.4's "module-load for which initialization may be
// skipped (per a configured allow-list)" GETSTATIC case.
func (o *Oracles) IsModuleLoad(ins *bytecode.Instruction) bool {
	if ins.Kind != bytecode.GETSTATIC {
		return false
	}
	return o.ModuleLoadFields[ins.Owner+"."+ins.Name]
}

// IsScalaUnbox matches §4.4's "scala-style unbox" row; castTo is the boxed
// type name the replacement CHECKCAST should target.
func (o *Oracles) IsScalaUnbox(ins *bytecode.Instruction) (castTo string, ok bool) {
	if !bytecode.IsMethodCall(ins) {
		return "", false
	}
	castTo, ok = o.ScalaUnboxCalls[ownerName(ins)]
	return
}

// IsJavaUnbox matches §4.4's "Java-style unbox" row (e.g. Integer#intValue).
func (o *Oracles) IsJavaUnbox(ins *bytecode.Instruction) bool {
	if !bytecode.IsMethodCall(ins) {
		return false
	}
	return o.JavaUnboxCalls[ownerName(ins)]
}

// IsRuntimeArrayLoadOrUpdate matches §4.3's "runtime array-apply/update
// calls" whose type-dispatch collapses once classTagNewArrayArg is known.
func (o *Oracles) IsRuntimeArrayLoadOrUpdate(ins *bytecode.Instruction) bool {
	if !bytecode.IsMethodCall(ins) {
		return false
	}
	return o.RuntimeArrayOps[ownerName(ins)]
}

// IsLambdaMetaFactoryCall matches the LambdaMetaFactoryCall matcher (§6):
// an INVOKEDYNAMIC whose bootstrap is java.lang.invoke.LambdaMetafactory.
func IsLambdaMetaFactoryCall(ins *bytecode.Instruction) bool {
	if ins.VariantKind() != bytecode.KindInvokeDynamic {
		return false
	}
	return ins.BootstrapName == "java/lang/invoke/LambdaMetafactory.metafactory" ||
		ins.BootstrapName == "java/lang/invoke/LambdaMetafactory.altMetafactory"
}

// classTagNewArray recognizes the three-instruction producer shape named in
// §4.3 and scenario 5: a class-literal LDC feeding ClassTag.apply feeding
// ClassTag#newArray. arg is walked backward from the newArray call.
type classTagNewArray struct {
	ldcClass  *bytecode.Instruction // LDC of the class literal
	ctApply   *bytecode.Instruction // INVOKESTATIC ClassTag.apply
	newArray  *bytecode.Instruction // INVOKEVIRTUAL ClassTag#newArray, the matched call itself
	className string
}

// matchClassTagNewArray inspects call (expected to be the newArray
// invocation) via the analyzer's producer chain, per the scenario's literal
// shape (`LDC classOf[X]; INVOKESTATIC ClassTag.apply; <argument sequence>;
// INVOKEVIRTUAL newArray`). Using producer tracking rather than a raw
// Prev()-walk correctly handles an argument sequence longer than one
// instruction, which a literal adjacency check would miss. It returns
// ok == false if the shape doesn't match, in which case (B) leaves the call
// alone.
func matchClassTagNewArray(a *analysis.Analyzer, call *bytecode.Instruction) (m classTagNewArray, ok bool) {
	if call.VariantKind() != bytecode.KindMethodCall ||
		call.Owner != "scala/reflect/ClassTag" || call.Name != "newArray" {
		return classTagNewArray{}, false
	}
	argCount := descriptorArgCount(call.Descriptor)
	receiverProducers := a.ProducersForStackAt(call, argCount)
	if len(receiverProducers) != 1 || receiverProducers[0].Insn == nil {
		return classTagNewArray{}, false
	}
	apply := receiverProducers[0].Insn
	if apply.VariantKind() != bytecode.KindMethodCall ||
		apply.Owner != "scala/reflect/ClassTag$" || apply.Name != "apply" {
		return classTagNewArray{}, false
	}
	classProducers := a.ProducersForStackAt(apply, 0)
	if len(classProducers) != 1 || classProducers[0].Insn == nil {
		return classTagNewArray{}, false
	}
	ldc := classProducers[0].Insn
	if ldc.VariantKind() != bytecode.KindConstPush || ldc.ConstKind != bytecode.ConstOther {
		return classTagNewArray{}, false
	}
	return classTagNewArray{ldcClass: ldc, ctApply: apply, newArray: call, className: ldc.StrVal}, true
}
