package shader

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// bindGroupDeclRegex captures group, binding, optional address space, variable name and type
// from declarations like: @group(0) @binding(0) var<uniform> TIME: f32;
var bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)

// BindingDecl is one resource declaration found by ScanBindings.
type BindingDecl struct {
	Group        int
	Binding      int
	AddressSpace string
	Name         string
	Type         string
	// Line is the 1-based source line of the declaration.
	Line int
}

// ScanBindings lists every @group/@binding variable declared in WGSL source,
// sorted by group and then binding. Comments are ignored.
//
// Parameters:
//   - source: raw WGSL source
//
// Returns:
//   - []BindingDecl: the declarations in (group, binding) order
func ScanBindings(source string) []BindingDecl {
	cleaned := stripComments(source)
	matches := bindGroupDeclRegex.FindAllStringSubmatchIndex(cleaned, -1)

	decls := make([]BindingDecl, 0, len(matches))
	for _, m := range matches {
		sub := func(i int) string {
			if m[2*i] < 0 {
				return ""
			}
			return strings.TrimSpace(cleaned[m[2*i]:m[2*i+1]])
		}
		group, _ := strconv.Atoi(sub(1))
		binding, _ := strconv.Atoi(sub(2))
		decls = append(decls, BindingDecl{
			Group:        group,
			Binding:      binding,
			AddressSpace: sub(3),
			Name:         sub(4),
			Type:         sub(5),
			Line:         strings.Count(cleaned[:m[0]], "\n") + 1,
		})
	}

	sort.SliceStable(decls, func(i, j int) bool {
		if decls[i].Group != decls[j].Group {
			return decls[i].Group < decls[j].Group
		}
		return decls[i].Binding < decls[j].Binding
	})
	return decls
}

// stripComments removes line and block comments from WGSL source.
func stripComments(source string) string {
	return stripLineComments(stripBlockComments(source))
}

// stripLineComments removes single-line // comments.
func stripLineComments(source string) string {
	var sb strings.Builder
	for line := range strings.SplitSeq(source, "\n") {
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// stripBlockComments removes /* ... */ comments, honoring nesting.
// Newlines inside comments are kept so line numbers stay stable.
func stripBlockComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	i := 0
	for i < len(source) {
		if i+1 < len(source) {
			if source[i] == '/' && source[i+1] == '*' {
				depth++
				i += 2
				continue
			}
			if source[i] == '*' && source[i+1] == '/' && depth > 0 {
				depth--
				i += 2
				continue
			}
		}
		if depth == 0 || source[i] == '\n' {
			sb.WriteByte(source[i])
		}
		i++
	}
	return sb.String()
}
