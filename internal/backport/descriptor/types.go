package descriptor

import "strings"

// fieldTypeEnd returns the index just past the field type starting at i,
// or -1 if none starts there.
func fieldTypeEnd(desc string, i int) int {
	for i < len(desc) && desc[i] == '[' {
		i++
	}
	if i >= len(desc) {
		return -1
	}
	switch desc[i] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return i + 1
	case 'L':
		end := strings.IndexByte(desc[i:], ';')
		if end < 0 {
			return -1
		}
		return i + end + 1
	}
	return -1
}

// MethodParameters returns the parameter types of a method descriptor
func MethodParameters(desc string) []string {
	if !strings.HasPrefix(desc, "(") {
		return nil
	}
	var params []string
	for i := 1; i < len(desc) && desc[i] != ')'; {
		end := fieldTypeEnd(desc, i)
		if end < 0 {
			return params
		}
		params = append(params, desc[i:end])
		i = end
	}
	return params
}

// MethodReturn returns the return type of a method descriptor
func MethodReturn(desc string) string {
	end := strings.LastIndexByte(desc, ')')
	if end < 0 {
		return ""
	}
	return desc[end+1:]
}

// PrependParameter inserts fieldType as the first parameter
func PrependParameter(desc, fieldType string) string {
	if !strings.HasPrefix(desc, "(") {
		return desc
	}
	return "(" + fieldType + desc[1:]
}

// ClassType returns the field type naming an internal class or array
func ClassType(name string) string {
	if strings.HasPrefix(name, "[") {
		return name
	}
	return "L" + name + ";"
}

// ClassNames returns the internal class names referenced by a descriptor,
// in order of appearance.
func ClassNames(desc string) []string {
	var names []string
	for i := 0; i < len(desc); i++ {
		if desc[i] != 'L' {
			continue
		}
		end := strings.IndexByte(desc[i:], ';')
		if end < 0 {
			break
		}
		names = append(names, desc[i+1:i+end])
		i += end
	}
	return names
}
