package diag

import "fmt"

type Code uint16

const (
	UnknownCode Code = 0

	// Declaration table
	DclInfo                      Code = 1000
	DclIncompatibleRedeclaration Code = 1001
	DclIncompatibleType          Code = 1002
	DclRedefinition              Code = 1003
	DclUndeclaredTypedef         Code = 1004

	// Anonymous type naming
	NamInfo      Code = 2000
	NamCollision Code = 2001
	NamFailed    Code = 2002

	// Macro constants
	MacInfo                Code = 3000
	MacCyclicDefinition    Code = 3001
	MacUnresolvedReference Code = 3002
	MacNotConstant         Code = 3003

	// Layout
	LayInfo                   Code = 4000
	LayIncompleteMember       Code = 4001
	LayRecursive              Code = 4002
	LayUnrepresentablePacking Code = 4003
	LayBitfieldWidth          Code = 4004
	LayBitfieldType           Code = 4005
	LayFlexibleArray          Code = 4006

	// Classification
	UnsInfo        Code = 5000
	UnsUnsupported Code = 5001
	UnsUndeclared  Code = 5002

	// Input (front-end unit and target files)
	InpInfo        Code = 6000
	InpInvalidDecl Code = 6001
	InpFrozen      Code = 6002
	InpUnresolved  Code = 6003
)

var codeDescription = map[Code]string{
	UnknownCode: "Unknown error",

	DclInfo:                      "Declaration information",
	DclIncompatibleRedeclaration: "Incompatible redeclaration",
	DclIncompatibleType:          "Redeclaration with incompatible type",
	DclRedefinition:              "Redefinition with different body",
	DclUndeclaredTypedef:         "Reference to undeclared typedef",

	NamInfo:      "Naming information",
	NamCollision: "Synthetic name collides with an existing declaration",
	NamFailed:    "Anonymous type could not be named",

	MacInfo:                "Macro information",
	MacCyclicDefinition:    "Cyclic macro definition",
	MacUnresolvedReference: "Macro references an undefined identifier",
	MacNotConstant:         "Macro is not a constant expression",

	LayInfo:                   "Layout information",
	LayIncompleteMember:       "Member has incomplete type",
	LayRecursive:              "Record contains itself by value",
	LayUnrepresentablePacking: "Unrepresentable packing",
	LayBitfieldWidth:          "Invalid bit-field width",
	LayBitfieldType:           "Invalid bit-field type",
	LayFlexibleArray:          "Misplaced flexible array member",

	UnsInfo:        "Classification information",
	UnsUnsupported: "Unsupported type usage",
	UnsUndeclared:  "Use of undeclared or incomplete type",

	InpInfo:        "Input information",
	InpInvalidDecl: "Invalid raw declaration",
	InpFrozen:      "Declaration table is frozen",
	InpUnresolved:  "Type could not be resolved",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("DCL%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("NAM%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("MAC%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("LAY%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("UNS%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("INP%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
