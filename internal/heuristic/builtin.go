package heuristic

import "slices"

// Names of the built-in variants.
const (
	FsNoCntChk    = "fs-nocntchk"
	FsNoNcaSigChk = "fs-noncasigchk"
)

// The FS sysmodule code this targets sits in 0x6xxxx-0x7xxxx on every
// known firmware, so anything past 0x80000 is noise.
const fsCeiling = 0x80000

var builtin = []Variant{
	{
		Name:        FsNoCntChk,
		Description: "FS sysmodule content check (BL; AND w8, w0, #0xff; CMP w8, #1; B.cond)",
		// Only the 0x54 of the B.cond is signature, the rest of it varies.
		Pattern:     "...94081c00121f050071..0054",
		Adjust:      4,
		Ceiling:     fsCeiling,
		DecodeWords: 4,
		Branch: &Branch{
			WordIndex: 0,
			FieldMask: ImmFieldMask26,
			Scale:     InstructionWidth,
			Window:    AddressWindow20,
			Words:     2,
		},
	},
	// Unconfirmed example signature: the shape has not been checked against
	// a real firmware dump. Verify the match in a sample before patching.
	{
		Name:        FsNoNcaSigChk,
		Description: "FS sysmodule NCA signature check (TBZ; 2 words; CMP; B.cond). Unconfirmed example signature, verify against a firmware sample before patching",
		Pattern:     "..0036........1f.0071..0054",
		Ceiling:     fsCeiling,
		DecodeWords: 5,
	},
}

// Builtin returns the compiled-in variants.
func Builtin() []Variant {
	out := make([]Variant, len(builtin))
	for i, v := range builtin {
		out[i] = v
		if v.Branch != nil {
			b := *v.Branch
			out[i].Branch = &b
		}
	}
	return out
}

// Lookup returns the built-in variant called name.
func Lookup(name string) (Variant, bool) {
	for _, v := range Builtin() {
		if v.Name == name {
			return v, true
		}
	}
	return Variant{}, false
}

// Names returns the sorted names of the built-in variants.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for _, v := range builtin {
		names = append(names, v.Name)
	}
	slices.Sort(names)
	return names
}
