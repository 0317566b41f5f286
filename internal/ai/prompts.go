package ai

import (
	"github.com/dafibh/gehalt/gehalt-backend/internal/domain"
	"google.golang.org/genai"
)

const extractionPrompt = "Du liest eine deutsche Gehaltsabrechnung (Entgeltabrechnung).\n\n" +
	"Aufgabe:\n" +
	"- Ermittle Abrechnungsmonat (1-12) und Jahr.\n" +
	"- Übernimm die Brutto-Bemessungsgrundlagen für Steuer, AV, PV, RV und KV.\n" +
	"- Übernimm Lohnsteuer, Kirchensteuer, Solidaritätszuschlag und sonstige Steuerabzüge.\n" +
	"- Übernimm die Arbeitnehmeranteile zur AV, PV, RV und KV.\n" +
	"- Übernimm Netto, Überweisungsbetrag, VWL und sonstige Auszahlungen.\n" +
	"- Liste jede Bezugsart einzeln unter \"incomes\" mit Bezeichnung, Lohnart-Nummer und Betrag.\n\n" +
	"Regeln:\n" +
	"- Beträge als positive Zahlen mit Punkt als Dezimaltrenner.\n" +
	"- Fehlt ein Wert, setze 0.\n" +
	"- Antworte ausschließlich mit dem JSON-Objekt."

const answerInstruction = "Du bist ein Assistent für persönliche Gehaltsabrechnungen. " +
	"Beantworte Fragen ausschließlich anhand der mitgelieferten Tabelle. " +
	"Antworte knapp auf Deutsch und nenne Beträge in Euro mit zwei Nachkommastellen. " +
	"Wenn die Daten für eine Antwort nicht ausreichen, sage das."

// statementSchema mirrors the external statement record
func statementSchema() *genai.Schema {
	number := func() *genai.Schema { return &genai.Schema{Type: genai.TypeNumber} }

	props := map[string]*genai.Schema{
		string(domain.FieldMonth): {Type: genai.TypeInteger},
		string(domain.FieldYear):  {Type: genai.TypeInteger},
		domain.FieldIncomes: {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"name":       {Type: genai.TypeString},
					"identifier": {Type: genai.TypeString},
					"value":      number(),
				},
				Required: []string{"name", "value"},
			},
		},
	}
	required := []string{string(domain.FieldMonth), string(domain.FieldYear)}
	for _, f := range domain.MoneyFields {
		props[string(f)] = number()
		required = append(required, string(f))
	}

	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: props,
		Required:   append(required, domain.FieldIncomes),
	}
}
