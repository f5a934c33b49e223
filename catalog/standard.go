package catalog

// NewStandardCatalog builds the reference catalog for the built-in Aurelia
// template controllers, a small native DOM set, and the global event/naming
// rules exercised by the Testable Properties and Scenarios in the spec
// (repeat/if/with/promise, <input>.value two-way default, classname/
// valueAsNumber normalization, data-/aria- preservation).
//
// This is the only place the standard repeat contextuals
// ($index, $first, $last, $even, $odd, $length, $this, $parent) are listed:
// scope (phase 30) reads them from ControllerConfig.Injects.Contextuals,
// never hardcoding them (spec 9, open question 3).
func NewStandardCatalog() *MapCatalog {
	c := NewMapCatalog()

	repeatContextuals := []string{"$index", "$first", "$last", "$even", "$odd", "$length", "$this", "$parent"}

	c.AddControllerConfig(ControllerConfig{
		Name:    "if",
		Trigger: Trigger{Kind: TriggerValue, Prop: "value"},
		Scope:   ScopeReuse,
	})
	c.AddControllerConfig(ControllerConfig{
		Name:    "else",
		Trigger: Trigger{Kind: TriggerMarker},
		Scope:   ScopeReuse,
		LinksTo: "if",
	})
	c.AddControllerConfig(ControllerConfig{
		Name:    "repeat",
		Trigger: Trigger{Kind: TriggerIterator, Prop: "items"},
		Scope:   ScopeOverlay,
		Injects: Injects{Contextuals: repeatContextuals},
		TailProps: map[string]TailProp{
			"key": {Accepts: []string{"bind", ""}, Type: TypeAny},
		},
	})
	c.AddControllerConfig(ControllerConfig{
		Name:    "with",
		Trigger: Trigger{Kind: TriggerValue, Prop: "value"},
		Scope:   ScopeOverlay,
	})
	c.AddControllerConfig(ControllerConfig{
		Name:    "promise",
		Trigger: Trigger{Kind: TriggerValue, Prop: "value"},
		Scope:   ScopeOverlay,
		Injects: Injects{Alias: "value"},
	})
	c.AddControllerConfig(ControllerConfig{
		Name:    "then",
		Trigger: Trigger{Kind: TriggerBranch, Prop: "promise"},
		Scope:   ScopeReuse,
		Branches: map[string]string{"then": "promise"},
		Injects: Injects{Alias: "value"},
		LinksTo: "promise",
	})
	c.AddControllerConfig(ControllerConfig{
		Name:    "catch",
		Trigger: Trigger{Kind: TriggerBranch, Prop: "promise"},
		Scope:   ScopeReuse,
		Branches: map[string]string{"catch": "promise"},
		Injects: Injects{Alias: "value"},
		LinksTo: "promise",
	})
	c.AddControllerConfig(ControllerConfig{
		Name:     "pending",
		Trigger:  Trigger{Kind: TriggerMarker},
		Scope:    ScopeReuse,
		Branches: map[string]string{"pending": "promise"},
		LinksTo:  "promise",
	})
	c.AddControllerConfig(ControllerConfig{
		Name:    "switch",
		Trigger: Trigger{Kind: TriggerValue, Prop: "value"},
		Scope:   ScopeReuse,
	})
	c.AddControllerConfig(ControllerConfig{
		Name:     "case",
		Trigger:  Trigger{Kind: TriggerValue, Prop: "value"},
		Scope:    ScopeReuse,
		Branches: map[string]string{"case": "switch"},
		LinksTo:  "switch",
	})
	c.AddControllerConfig(ControllerConfig{
		Name:     "default-case",
		Trigger:  Trigger{Kind: TriggerMarker},
		Scope:    ScopeReuse,
		Branches: map[string]string{"default-case": "switch"},
		LinksTo:  "switch",
	})
	c.AddControllerConfig(ControllerConfig{
		Name:    "portal",
		Trigger: Trigger{Kind: TriggerValue, Prop: "target"},
		Scope:   ScopeReuse,
	})

	c.AddDomElement(DomElement{
		Tag: "input",
		AttrToProp: map[string]string{
			"valueasnumber": "valueAsNumber",
			"checked":       "checked",
		},
		Props: map[string]TypeRef{
			"value":         TypeString,
			"valueAsNumber": TypeNumber,
			"checked":       TypeBoolean,
			"disabled":      TypeBoolean,
		},
	})
	c.AddDomElement(DomElement{
		Tag:  "textarea",
		Props: map[string]TypeRef{"value": TypeString},
	})
	c.AddDomElement(DomElement{
		Tag:  "select",
		Props: map[string]TypeRef{"value": TypeString},
	})

	c.AddTwoWayDefault("input", "value")
	c.AddTwoWayDefault("input", "valueAsNumber")
	c.AddTwoWayDefault("input", "checked")
	c.AddTwoWayDefault("textarea", "value")
	c.AddTwoWayDefault("select", "value")

	// Global naming-map fallback exercised by P8: "classname" -> "className"
	// regardless of tag.
	c.AddNamingRule("classname", "", "className")

	// Built-in binding behaviors and value converters Aurelia ships with the
	// runtime itself (not project-defined, so every template may reference
	// them without an explicit catalog registration step).
	c.AddBindingBehavior("oneTime")
	c.AddBindingBehavior("toView")
	c.AddBindingBehavior("fromView")
	c.AddBindingBehavior("twoWay")
	c.AddBindingBehavior("debounce")
	c.AddBindingBehavior("throttle")
	c.AddBindingBehavior("signal")
	c.AddBindingBehavior("updateTrigger")
	c.AddBindingBehavior("self")
	c.AddValueConverter("sanitize")

	c.AddEvent("click", "", TypeFunction)
	c.AddEvent("input", "", TypeFunction)
	c.AddEvent("change", "", TypeFunction)
	c.AddEvent("submit", "", TypeFunction)
	c.AddEvent("keydown", "", TypeFunction)
	c.AddEvent("keyup", "", TypeFunction)

	c.AddBindingCommand("bind", "propertyBinding")
	c.AddBindingCommand("to-view", "propertyBinding")
	c.AddBindingCommand("from-view", "propertyBinding")
	c.AddBindingCommand("two-way", "propertyBinding")
	c.AddBindingCommand("one-time", "propertyBinding")
	c.AddBindingCommand("trigger", "listenerBinding")
	c.AddBindingCommand("capture", "listenerBinding")
	c.AddBindingCommand("delegate", "listenerBinding")
	c.AddBindingCommand("ref", "refBinding")
	c.AddBindingCommand("style", "stylePropertyBinding")
	c.AddBindingCommand("class", "setClassAttribute")
	c.AddBindingCommand("attr", "attributeBinding")
	c.AddBindingCommand("for", "iteratorBinding")

	c.SetPreservedAttrPrefixes("data-", "aria-")

	return c
}
