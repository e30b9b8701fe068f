package errors

// Error Code Format: AABBCCC (7 digits)
//
//	AA  (00-99): Service code
//	BB  (00-99): Category code
//	CCC (000-999): Sequence number within the category

// Service codes.
const (
	ServiceCommon    = 0
	ServiceStorybook = 20
)

// Category codes.
const (
	CategorySuccess  = 0
	CategoryRequest  = 1
	CategoryAuth     = 2
	CategoryResource = 4
	CategoryConflict = 5
	CategoryInternal = 7
	CategoryDatabase = 8
	CategoryCache    = 9
	CategoryNetwork  = 10
	CategoryTimeout  = 11
	CategoryConfig   = 12
)

// MakeCode builds an error code from its service, category and sequence parts.
func MakeCode(service, category, sequence int) int {
	return service*100000 + category*1000 + sequence
}

// ParseCode splits an error code into service, category and sequence.
func ParseCode(code int) (service, category, sequence int) {
	return code / 100000, (code / 1000) % 100, code % 1000
}

// GetService returns the service part of a code.
func GetService(code int) int {
	s, _, _ := ParseCode(code)
	return s
}

// GetCategory returns the category part of a code.
func GetCategory(code int) int {
	_, c, _ := ParseCode(code)
	return c
}
