package nrbf

// Result is the product of a full decode: the object graph plus the header
// fields and library table needed to interpret it. Objects is exported
// (rather than hidden behind an accessor) so that callers working directly
// against the NRBF layer, or tests comparing golden forms, can walk the
// graph without going through the bridge.
type Result struct {
	RootID       int32
	HasRootID    bool
	HeaderID     int32
	MajorVersion int32
	MinorVersion int32

	LibraryIDNameMappings map[int32]string
	Objects               map[int32]any
}

// Context is the mutable state threaded through every record handler during
// a single decode pass: the header once it is seen, the library id table,
// and the running object-id -> value map used both to register newly-read
// objects and resolve back-references.
type Context struct {
	result *Result
}

func NewContext() *Context {
	return &Context{
		result: &Result{
			LibraryIDNameMappings: make(map[int32]string),
			Objects:               make(map[int32]any),
		},
	}
}

func (c *Context) SetHeader(rootID, headerID, majorVersion, minorVersion int32) {
	c.result.RootID = rootID
	c.result.HasRootID = true
	c.result.HeaderID = headerID
	c.result.MajorVersion = majorVersion
	c.result.MinorVersion = minorVersion
}

func (c *Context) AddLibraryIDNameMapping(id int32, name string) {
	c.result.LibraryIDNameMappings[id] = name
}

func (c *Context) LibraryIDResolvable(id int32) bool {
	_, ok := c.result.LibraryIDNameMappings[id]
	return ok
}

func (c *Context) AddObject(id int32, v any) {
	c.result.Objects[id] = v
}

func (c *Context) FetchObject(id int32) (any, bool) {
	v, ok := c.result.Objects[id]
	return v, ok
}

func (c *Context) Result() *Result { return c.result }
