package reference

// ComputedReference derives its value from input references. Its tag is the
// combination of the input tags.
type ComputedReference struct {
	inputs  []Reference
	tag     Tag
	compute func(values []any) any
}

// Compute returns a reference whose value is fn applied to the current
// values of inputs. When every input is constant the result is constant.
func Compute(inputs []Reference, fn func(values []any) any) Reference {
	c := &ComputedReference{
		inputs:  inputs,
		tag:     CombineReferences(inputs...),
		compute: fn,
	}
	if c.tag == ConstantTag {
		return Const(c.Value())
	}
	return c
}

// Map derives a value from a single reference.
func Map(ref Reference, fn func(any) any) Reference {
	return Compute([]Reference{ref}, func(values []any) any {
		return fn(values[0])
	})
}

func (c *ComputedReference) Tag() Tag { return c.tag }

func (c *ComputedReference) Value() any {
	values := make([]any, len(c.inputs))
	for i, in := range c.inputs {
		values[i] = in.Value()
	}
	return c.compute(values)
}

// Get navigates into the computed value.
func (c *ComputedReference) Get(key string) PathReference {
	return &ComputedReference{
		inputs: []Reference{c},
		tag:    c.tag,
		compute: func(values []any) any {
			return Property(values[0], key)
		},
	}
}
