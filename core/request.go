package core

// Style is a closed set of communication tones a rewrite can target.
type Style string

const (
	StyleFormal     Style = "formal"
	StyleCasual     Style = "casual"
	StyleEmpathetic Style = "empathetic"
	StyleDirect     Style = "direct"
	StyleDiplomatic Style = "diplomatic"
)

// Styles returns every selectable style, in display order.
func Styles() []Style {
	return []Style{StyleFormal, StyleCasual, StyleEmpathetic, StyleDirect, StyleDiplomatic}
}

func (s Style) Valid() bool {
	for _, known := range Styles() {
		if s == known {
			return true
		}
	}
	return false
}

// Audience is a closed set of target audiences for a rewrite.
type Audience string

const (
	AudienceExecutive Audience = "executive"
	AudiencePeer      Audience = "peer"
	AudienceClient    Audience = "client"
	AudienceTeam      Audience = "team"
	AudiencePublic    Audience = "public"
)

// Audiences returns every selectable audience, in display order.
func Audiences() []Audience {
	return []Audience{AudienceExecutive, AudiencePeer, AudienceClient, AudienceTeam, AudiencePublic}
}

func (a Audience) Valid() bool {
	for _, known := range Audiences() {
		if a == known {
			return true
		}
	}
	return false
}

// RequestContext parametrizes a single rewrite request. It is constructed fresh
// from the current UI selections and has no lifecycle beyond the call it shapes.
type RequestContext struct {
	Style    Style
	Audience Audience
}
