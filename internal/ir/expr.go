package ir

// ExprKind is the tag discriminating which payload fields of Expr are
// live. A visitor switches on Kind to drive both type recovery and
// emission, per the "tagged enum + payload struct" design note: a full
// class hierarchy with virtual dispatch is neither required nor
// idiomatic here.
type ExprKind int

const (
	ExprConstant ExprKind = iota
	ExprVariable
	ExprUnary
	ExprBinary
	ExprCall
	ExprMemberAccess
	ExprArrayIndex
	ExprCast
	ExprLoad
)

// ConstKind discriminates the payload of a Constant expression.
type ConstKind int

const (
	ConstInt ConstKind = iota
	ConstFloat
	ConstString
	ConstBool
)

// UnaryOp enumerates unary operators.
type UnaryOp int

const (
	OpNegate UnaryOp = iota
	OpNot
)

// BinaryOp enumerates binary operators.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpIntDiv
	OpMod
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	OpXor
	OpConcat
)

// IsComparison reports whether op is one of the six comparison operators.
func (op BinaryOp) IsComparison() bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return true
	}
	return false
}

// IsLogical reports whether op is one of the three logical operators.
func (op BinaryOp) IsLogical() bool {
	switch op {
	case OpAnd, OpOr, OpXor:
		return true
	}
	return false
}

// Expr is an IR expression tree node. It owns its children: Operand,
// Left/Right, Args, Object/Array/Indices, and CastOperand/Address are
// never shared between two parents. Every node carries its own inferred
// result Type, set at construction and refined in place by type
// recovery (§4.9 never replaces a node, only its Type field).
type Expr struct {
	Kind ExprKind
	Type Type

	// ExprConstant
	ConstKind   ConstKind
	IntValue    int64
	FloatValue  float64
	StringValue string
	BoolValue   bool

	// ExprVariable
	Var *Variable

	// ExprUnary
	UnaryOp UnaryOp
	Operand *Expr

	// ExprBinary
	BinaryOp BinaryOp
	Left     *Expr
	Right    *Expr

	// ExprCall
	CallName string
	Args     []*Expr

	// ExprMemberAccess
	Object *Expr
	Member string

	// ExprArrayIndex
	Array   *Expr
	Indices []*Expr

	// ExprCast
	CastOperand *Expr
	TargetType  Type

	// ExprLoad
	Address *Expr
}

// NewIntConstant builds an integer constant expression of type Long,
// matching §4.9's "Constant: int -> Long" typing rule.
func NewIntConstant(v int64) *Expr {
	return &Expr{Kind: ExprConstant, Type: Long, ConstKind: ConstInt, IntValue: v}
}

// NewFloatConstant builds a float constant expression of type Double.
func NewFloatConstant(v float64) *Expr {
	return &Expr{Kind: ExprConstant, Type: Double, ConstKind: ConstFloat, FloatValue: v}
}

// NewStringConstant builds a string constant expression.
func NewStringConstant(v string) *Expr {
	return &Expr{Kind: ExprConstant, Type: String, ConstKind: ConstString, StringValue: v}
}

// NewBoolConstant builds a boolean constant expression.
func NewBoolConstant(v bool) *Expr {
	return &Expr{Kind: ExprConstant, Type: Boolean, ConstKind: ConstBool, BoolValue: v}
}

// NewVariable builds a reference to v, carrying v's current type.
func NewVariable(v *Variable) *Expr {
	return &Expr{Kind: ExprVariable, Type: v.Type, Var: v}
}

// NewUnary builds a unary expression.
func NewUnary(op UnaryOp, operand *Expr, t Type) *Expr {
	return &Expr{Kind: ExprUnary, Type: t, UnaryOp: op, Operand: operand}
}

// NewBinary builds a binary expression.
func NewBinary(op BinaryOp, left, right *Expr, t Type) *Expr {
	return &Expr{Kind: ExprBinary, Type: t, BinaryOp: op, Left: left, Right: right}
}

// NewCall builds a call expression (used where P-Code pushes the call's
// result, as opposed to a Call statement for void calls).
func NewCall(name string, args []*Expr, t Type) *Expr {
	return &Expr{Kind: ExprCall, Type: t, CallName: name, Args: args}
}

// NewMemberAccess builds an object.member expression.
func NewMemberAccess(object *Expr, member string) *Expr {
	return &Expr{Kind: ExprMemberAccess, Type: Variant, Object: object, Member: member}
}

// NewArrayIndex builds an array(i1, i2, ...) expression.
func NewArrayIndex(array *Expr, indices []*Expr) *Expr {
	return &Expr{Kind: ExprArrayIndex, Type: Variant, Array: array, Indices: indices}
}

// NewCast builds a type-conversion expression.
func NewCast(operand *Expr, target Type) *Expr {
	return &Expr{Kind: ExprCast, Type: target, CastOperand: operand, TargetType: target}
}

// NewLoad builds a dereference expression.
func NewLoad(address *Expr, t Type) *Expr {
	return &Expr{Kind: ExprLoad, Type: t, Address: address}
}
