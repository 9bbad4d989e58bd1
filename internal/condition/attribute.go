package condition

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/CCCloudPlatform/agenticcp-policy-engine/pkg/types"
)

// evaluateAttribute applies one comparison operator to an actual request
// value and an expected policy value. Unknown operators and malformed
// expected values (bad regex, unparseable numbers where no string
// ordering helps) evaluate to false.
func evaluateAttribute(actual interface{}, op types.Operator, expected interface{}) bool {
	switch op {
	case types.OpIsNull:
		return actual == nil
	case types.OpIsNotNull:
		return actual != nil
	case types.OpIsEmpty:
		return isEmptyValue(actual)
	case types.OpIsNotEmpty:
		return !isEmptyValue(actual)
	}

	actualStr := renderString(actual)
	expectedStr := renderString(expected)

	switch op {
	case types.OpEQ:
		return actualStr == expectedStr
	case types.OpNE:
		return actualStr != expectedStr
	case types.OpContains:
		return strings.Contains(actualStr, expectedStr)
	case types.OpNotContain:
		return !strings.Contains(actualStr, expectedStr)
	case types.OpStartsWith:
		return strings.HasPrefix(actualStr, expectedStr)
	case types.OpEndsWith:
		return strings.HasSuffix(actualStr, expectedStr)
	case types.OpRegex:
		re, err := regexp.Compile(expectedStr)
		if err != nil {
			return false
		}
		return re.MatchString(actualStr)
	case types.OpIn:
		return containsValue(stringList(expected), actualStr)
	case types.OpNotIn:
		return !containsValue(stringList(expected), actualStr)
	case types.OpGT:
		return compareOrdered(actualStr, expectedStr) > 0
	case types.OpLT:
		return compareOrdered(actualStr, expectedStr) < 0
	case types.OpGTE:
		return compareOrdered(actualStr, expectedStr) >= 0
	case types.OpLTE:
		return compareOrdered(actualStr, expectedStr) <= 0
	default:
		return false
	}
}

// compareOrdered compares two values numerically when both parse as
// numbers, and lexically otherwise.
func compareOrdered(a, b string) int {
	af, errA := strconv.ParseFloat(a, 64)
	bf, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}

func containsValue(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

// renderString renders an attribute value for comparison. nil renders
// as the empty string.
func renderString(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// isEmptyValue reports whether a value is nil, a blank string, or an
// empty collection.
func isEmptyValue(v interface{}) bool {
	if v == nil {
		return true
	}
	switch vv := v.(type) {
	case string:
		return strings.TrimSpace(vv) == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	}
	return false
}
