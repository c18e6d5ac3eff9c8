package saga

// Context is the mutable scratchpad shared by the steps of one saga
// execution. It is passed by reference through the step sequence and must
// never be shared across concurrent executions.
type Context struct {
	data map[string]any
}

func NewContext(initial map[string]any) *Context {
	data := make(map[string]any, len(initial))
	for k, v := range initial {
		data[k] = v
	}
	return &Context{data: data}
}

func (c *Context) Put(key string, value any) {
	c.data[key] = value
}

func (c *Context) Get(key string) (any, bool) {
	v, ok := c.data[key]
	return v, ok
}

func (c *Context) GetString(key string) string {
	if v, ok := c.data[key].(string); ok {
		return v
	}
	return ""
}

func (c *Context) GetInt64(key string) int64 {
	switch v := c.data[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// Snapshot deep-copies the context for persistence into the saga log, so
// the durable audit state never aliases the live execution state.
func (c *Context) Snapshot() map[string]any {
	out := make(map[string]any, len(c.data))
	for k, v := range c.data {
		out[k] = deepCopy(v)
	}
	return out
}

func deepCopy(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = deepCopy(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopy(item)
		}
		return out
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	default:
		// Primitives are immutable; anything else placed in the context is
		// expected to be a value type.
		return val
	}
}
