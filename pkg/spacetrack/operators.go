package spacetrack

// Query operators. Each returns a predicate value understood by the
// Space-Track query language.

// GreaterThan returns ">value".
func GreaterThan(value any) string {
	return ">" + EncodeValue(value)
}

// LessThan returns "<value".
func LessThan(value any) string {
	return "<" + EncodeValue(value)
}

// NotEqual returns "<>value".
func NotEqual(value any) string {
	return "<>" + EncodeValue(value)
}

// InclusiveRange returns "left--right".
func InclusiveRange(left, right any) string {
	return EncodeValue(left) + "--" + EncodeValue(right)
}

// Like returns "~~value".
func Like(value any) string {
	return "~~" + EncodeValue(value)
}

// StartsWith returns "^value".
func StartsWith(value any) string {
	return "^" + EncodeValue(value)
}
