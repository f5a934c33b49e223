package exprlang

import "testing"

func TestDefaultParser_Parse_Valid(t *testing.T) {
	p := NewDefaultParser()
	a := p.Parse("item.active", KindIsAssign)
	if a.IsBad() {
		t.Fatalf("expected valid parse, got bad: %s", a.BadMessage())
	}
}

func TestDefaultParser_Parse_BadExpressionNeverErrors(t *testing.T) {
	p := NewDefaultParser()
	a := p.Parse("1 +", KindNone)
	if !a.IsBad() {
		t.Fatal("expected BadExpression for malformed input")
	}
	if a.BadMessage() == "" {
		t.Fatal("expected a non-empty bad message")
	}
}

func TestSplitInterpolation_PlainText(t *testing.T) {
	parts, has := SplitInterpolation("hello world")
	if has {
		t.Fatalf("expected no interpolation, got %v", parts)
	}
}

func TestSplitInterpolation_SingleExpr(t *testing.T) {
	parts, has := SplitInterpolation("Hello, ${name}!")
	if !has {
		t.Fatal("expected interpolation")
	}
	if len(parts) != 3 {
		t.Fatalf("expected 3 parts, got %d: %+v", len(parts), parts)
	}
	if parts[0].Text != "Hello, " {
		t.Errorf("parts[0] = %+v", parts[0])
	}
	if parts[1].Expr == nil || parts[1].Code != "name" {
		t.Errorf("parts[1] = %+v", parts[1])
	}
	if parts[2].Text != "!" {
		t.Errorf("parts[2] = %+v", parts[2])
	}
}

func TestSplitInterpolation_SpanPointsToInnerExpression(t *testing.T) {
	s := "x = ${item.value}"
	parts, has := SplitInterpolation(s)
	if !has {
		t.Fatal("expected interpolation")
	}
	var exprPart *InterpPart
	for i := range parts {
		if parts[i].Expr != nil {
			exprPart = &parts[i]
		}
	}
	if exprPart == nil {
		t.Fatal("expected an expression part")
	}
	got := s[exprPart.Start : exprPart.Start+len(exprPart.Code)]
	if got != "item.value" {
		t.Errorf("span points to %q, want %q", got, "item.value")
	}
}

func TestParseForOf_SimpleDeclaration(t *testing.T) {
	decl, iter := ParseForOf("item of items")
	if iter.IsBad() {
		t.Fatalf("unexpected bad iterable: %s", iter.BadMessage())
	}
	if decl.Value != "item" || decl.Key != "" {
		t.Errorf("decl = %+v", decl)
	}
}

func TestParseForOf_ValueAndKey(t *testing.T) {
	decl, iter := ParseForOf("item, idx of items")
	if iter.IsBad() {
		t.Fatalf("unexpected bad iterable: %s", iter.BadMessage())
	}
	if decl.Value != "item" || decl.Key != "idx" {
		t.Errorf("decl = %+v", decl)
	}
}

func TestParseForOf_MalformedHeaderYieldsBadExpression(t *testing.T) {
	decl, iter := ParseForOf("")
	if !iter.IsBad() {
		t.Fatal("expected bad expression for empty header")
	}
	if decl != (ForOfDeclaration{}) {
		t.Errorf("expected zero declaration, got %+v", decl)
	}
}
