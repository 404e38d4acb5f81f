// Package prompt renders the strategy-specific instruction set sent as the
// system prompt. Pure functions over a closed parameter set; the upstream
// model runs at zero temperature so identical grounding and question give
// near-identical output, which is what makes translation caching effective.
package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/stayline/concierge-gateway/internal/strategy"
)

// Input is everything a template may reference.
type Input struct {
	Strategy          strategy.Strategy
	Code              string
	TenantName        string
	Grounding         string
	SupportContact    string
	GroundingLanguage string
	Now               time.Time
}

// Build renders the instruction text for the strategy.
func Build(in Input) string {
	switch in.Strategy {
	case strategy.Emergency:
		return buildEmergency(in)
	case strategy.DiagnosticCode:
		return buildDiagnostic(in)
	default:
		return buildGeneral(in)
	}
}

// commonRules fixes the response language, the closed-information rule, and
// the ban on mentioning manuals or documentation to the guest.
func commonRules(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Responde siempre en el idioma \"%s\", sin excepción, aunque el huésped escriba en otro idioma.\n", in.GroundingLanguage)
	b.WriteString("Usa únicamente la información del CONTEXTO. Si la respuesta no está en el contexto, ")
	if in.SupportContact != "" {
		fmt.Fprintf(&b, "dilo con claridad y ofrece el contacto de soporte: %s.\n", in.SupportContact)
	} else {
		b.WriteString("dilo con claridad y sugiere contactar con el anfitrión.\n")
	}
	b.WriteString("Nunca menciones manuales, documentación, marcas ni modelos de electrodomésticos.\n")
	b.WriteString("Nunca inventes datos, precios, horarios ni teléfonos.\n")
	return b.String()
}

func buildGeneral(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Eres el asistente del alojamiento \"%s\". Fecha actual: %s.\n",
		in.TenantName, in.Now.Format("2006-01-02"))
	b.WriteString("Ayuda al huésped con un tono cercano, breve y resolutivo.\n")
	b.WriteString(commonRules(in))
	b.WriteString("\nCONTEXTO:\n")
	b.WriteString(in.Grounding)
	return b.String()
}

func buildDiagnostic(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Eres el asistente del alojamiento \"%s\". El huésped consulta por el código de avería \"%s\". Fecha actual: %s.\n",
		in.TenantName, in.Code, in.Now.Format("2006-01-02"))
	b.WriteString("Busca en el CONTEXTO la entrada que corresponda exactamente a ese código y explica los pasos de solución uno a uno, en lenguaje sencillo.\n")
	fmt.Fprintf(&b, "Si el contexto no cubre el código %s, dilo y ofrece el contacto de soporte en su lugar.\n", in.Code)
	b.WriteString(commonRules(in))
	b.WriteString("\nCONTEXTO:\n")
	b.WriteString(in.Grounding)
	return b.String()
}

func buildEmergency(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Eres el asistente del alojamiento \"%s\". El mensaje describe una posible EMERGENCIA de seguridad.\n", in.TenantName)
	b.WriteString("Prioridad absoluta: la seguridad de las personas. No intentes diagnosticar la avería.\n")
	b.WriteString("Indica con calma y por este orden: 1) alejarse del peligro, 2) si hay fuego, humo o olor a gas, salir del alojamiento y llamar al 112, 3) cortar la llave general (luz o gas) solo si es seguro hacerlo.\n")
	if in.SupportContact != "" {
		fmt.Fprintf(&b, "Después de los pasos de seguridad, indica el contacto de soporte: %s.\n", in.SupportContact)
	}
	b.WriteString(commonRules(in))
	b.WriteString("\nCONTEXTO:\n")
	b.WriteString(in.Grounding)
	return b.String()
}
