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

package main

import "github.com/ArthurS1/bytecode-localopt/bytecode"

// fixture pairs a demo method with the owning class name the call-graph
// collaborators key on.
type fixture struct {
	owner  string
	method *bytecode.Method
}

// fixtures builds the small hand-authored methods this driver runs the four
// passes over. There is no class-file parser in scope, so a real corpus is
// out of reach here; these instead reconstruct each scenario the four
// passes are built against, one method per scenario.
func fixtures() []fixture {
	return []fixture{
		{owner: "demo/Copies", method: copyChainMethod()},
		{owner: "demo/DeadRef", method: deadRefStoreMethod()},
		{owner: "demo/ClassTag", method: classTagNewArrayMethod()},
		{owner: "demo/Boxes", method: unusedUnboxMethod()},
		{owner: "demo/Pure", method: unusedPureConstructorMethod()},
		{owner: "demo/StoreLoad", method: nestedNullStorePairMethod()},
	}
}

// copyChainMethod: x := a; y := x; return y — a chain of aliasing stores
// copy-propagation should collapse so every load ultimately reads the
// parameter slot.
func copyChainMethod() *bytecode.Method {
	m := bytecode.NewMethod("copyChain", "(I)I", true, 3, 2)
	m.Append(bytecode.NewVar(bytecode.ILOAD, 0))
	m.Append(bytecode.NewVar(bytecode.ISTORE, 1))
	m.Append(bytecode.NewVar(bytecode.ILOAD, 1))
	m.Append(bytecode.NewVar(bytecode.ISTORE, 2))
	m.Append(bytecode.NewVar(bytecode.ILOAD, 2))
	m.Append(bytecode.NewPlain(bytecode.IRETURN))
	return m
}

// deadRefStoreMethod: a local holds a freshly built object that is stored
// and never read again before the method returns — the trailing-store
// exemption lets (B) skip null-poisoning it.
func deadRefStoreMethod() *bytecode.Method {
	m := bytecode.NewMethod("deadRefStore", "()V", true, 2, 2)
	m.Append(bytecode.NewType(bytecode.NEW, "java/lang/StringBuilder"))
	m.Append(bytecode.NewPlain(bytecode.DUP))
	m.Append(bytecode.NewMethodCall(bytecode.INVOKESPECIAL, "java/lang/StringBuilder", "<init>", "()V", false))
	m.Append(bytecode.NewVar(bytecode.ASTORE, 0))
	m.Append(bytecode.NewPlain(bytecode.RETURN))
	return m
}

// classTagNewArrayMethod: ClassTag(classOf[X]).newArray(n) — the intrinsic
// shape (B) rewrites straight to ANEWARRAY.
func classTagNewArrayMethod() *bytecode.Method {
	m := bytecode.NewMethod("classTagNewArray", "(I)[Ljava/lang/String;", true, 1, 3)
	m.Append(bytecode.NewOtherConst("java/lang/String"))
	m.Append(bytecode.NewMethodCall(bytecode.INVOKESTATIC, "scala/reflect/ClassTag$", "apply",
		"(Ljava/lang/Class;)Lscala/reflect/ClassTag;", false))
	m.Append(bytecode.NewVar(bytecode.ILOAD, 0))
	m.Append(bytecode.NewMethodCall(bytecode.INVOKEVIRTUAL, "scala/reflect/ClassTag", "newArray",
		"(I)Ljava/lang/Object;", false))
	m.Append(bytecode.NewType(bytecode.CHECKCAST, "[Ljava/lang/String;"))
	m.Append(bytecode.NewPlain(bytecode.ARETURN))
	return m
}

// unusedUnboxMethod: a boxed Integer parameter is unboxed and immediately
// discarded — (C) should rewrite the discarded java-style unbox into a
// preserving null check rather than dropping it outright.
func unusedUnboxMethod() *bytecode.Method {
	m := bytecode.NewMethod("unusedUnbox", "(Ljava/lang/Integer;)V", true, 1, 2)
	m.Append(bytecode.NewVar(bytecode.ALOAD, 0))
	m.Append(bytecode.NewMethodCall(bytecode.INVOKEVIRTUAL, "java/lang/Integer", "intValue", "()I", false))
	m.Append(bytecode.NewPlain(bytecode.POP))
	m.Append(bytecode.NewPlain(bytecode.RETURN))
	return m
}

// unusedPureConstructorMethod: `new Tuple2(a, b)` built and immediately
// discarded via DUP — (C)'s unused-pure-constructor elimination should erase
// the whole allocation once its DUP'd receiver is found unused.
func unusedPureConstructorMethod() *bytecode.Method {
	m := bytecode.NewMethod("unusedPureConstructor", "(Ljava/lang/Object;Ljava/lang/Object;)V", true, 3, 4)
	m.Append(bytecode.NewType(bytecode.NEW, "scala/Tuple2"))
	m.Append(bytecode.NewPlain(bytecode.DUP))
	m.Append(bytecode.NewVar(bytecode.ALOAD, 0))
	m.Append(bytecode.NewVar(bytecode.ALOAD, 1))
	m.Append(bytecode.NewMethodCall(bytecode.INVOKESPECIAL, "scala/Tuple2", "<init>",
		"(Ljava/lang/Object;Ljava/lang/Object;)V", false))
	m.Append(bytecode.NewPlain(bytecode.POP))
	m.Append(bytecode.NewPlain(bytecode.RETURN))
	return m
}

// nestedNullStorePairMethod: a null-initialized slot 2 whose store/load pair
// nests inside slot 1's store/load pair — (D)'s null-store fusion special
// case, chained through a dependency onto the outer pair.
func nestedNullStorePairMethod() *bytecode.Method {
	m := bytecode.NewMethod("nestedNullStorePair", "()I", true, 3, 2)
	m.Append(bytecode.NewIntConst(0))
	m.Append(bytecode.NewVar(bytecode.ISTORE, 1))
	m.Append(bytecode.NewNull())
	m.Append(bytecode.NewVar(bytecode.ASTORE, 2))
	m.Append(bytecode.NewVar(bytecode.ILOAD, 1))
	m.Append(bytecode.NewPlain(bytecode.IRETURN))
	return m
}
