package ir

func (b Base) StmtLabel() string { return b.Label }

func (x Nop) WithLabel(l string) Stmt    { x.Label = l; return x }
func (x Store) WithLabel(l string) Stmt  { x.Label = l; return x }
func (x BinOp) WithLabel(l string) Stmt  { x.Label = l; return x }
func (x UnOp) WithLabel(l string) Stmt   { x.Label = l; return x }
func (x Jump) WithLabel(l string) Stmt   { x.Label = l; return x }
func (x CJump) WithLabel(l string) Stmt  { x.Label = l; return x }
func (x Call) WithLabel(l string) Stmt   { x.Label = l; return x }
func (x Return) WithLabel(l string) Stmt { x.Label = l; return x }
func (x Move) WithLabel(l string) Stmt   { x.Label = l; return x }

func (Nop) Inputs() []string  { return nil }
func (Nop) Outputs() []string { return nil }

func (x Nop) Substitute(in, out map[string]string) Stmt { return x }

func (Store) Inputs() []string    { return nil }
func (x Store) Outputs() []string { return []string{x.Dest} }

func (x Store) Substitute(in, out map[string]string) Stmt {
	x.Dest = subst(out, x.Dest)
	return x
}

func (x BinOp) Inputs() []string  { return []string{x.L, x.R} }
func (x BinOp) Outputs() []string { return []string{x.Dest} }

func (x BinOp) Substitute(in, out map[string]string) Stmt {
	x.Dest = subst(out, x.Dest)
	x.L = subst(in, x.L)
	x.R = subst(in, x.R)
	return x
}

func (x UnOp) Inputs() []string  { return []string{x.Arg} }
func (x UnOp) Outputs() []string { return []string{x.Dest} }

func (x UnOp) Substitute(in, out map[string]string) Stmt {
	x.Dest = subst(out, x.Dest)
	x.Arg = subst(in, x.Arg)
	return x
}

func (Jump) Inputs() []string  { return nil }
func (Jump) Outputs() []string { return nil }

func (x Jump) Substitute(in, out map[string]string) Stmt { return x }

func (x CJump) Inputs() []string { return []string{x.Var} }
func (CJump) Outputs() []string  { return nil }

func (x CJump) Substitute(in, out map[string]string) Stmt {
	x.Var = subst(in, x.Var)
	return x
}

func (x Call) Inputs() []string {
	return append([]string{}, x.Args...)
}

func (x Call) Outputs() []string {
	if x.Result == "" {
		return nil
	}

	return []string{x.Result}
}

func (x Call) Substitute(in, out map[string]string) Stmt {
	args := make([]string, len(x.Args))

	for i, a := range x.Args {
		args[i] = subst(in, a)
	}

	x.Args = args

	if x.Result != "" {
		x.Result = subst(out, x.Result)
	}

	return x
}

func (x Return) Inputs() []string {
	if x.Var == "" {
		return nil
	}

	return []string{x.Var}
}

func (Return) Outputs() []string { return nil }

func (x Return) Substitute(in, out map[string]string) Stmt {
	if x.Var != "" {
		x.Var = subst(in, x.Var)
	}

	return x
}

// Move operates on locations, not on names.
func (Move) Inputs() []string  { return nil }
func (Move) Outputs() []string { return nil }

func (x Move) Substitute(in, out map[string]string) Stmt { return x }

func subst(m map[string]string, name string) string {
	if x, ok := m[name]; ok {
		return x
	}

	return name
}
