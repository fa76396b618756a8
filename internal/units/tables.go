package units

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// LoadTable reads a canonical unit table from a YAML file of the form:
//
//	kopek:
//	  aliases: [kopeck, kopeika]
//	  plural: kopeks
//
// Entries merge over (and override) the built-in table when passed to
// MergeTables.
func LoadTable(path string) (map[string]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "units: read alias table")
	}
	var table map[string]Entry
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, eris.Wrap(err, "units: parse alias table")
	}
	return table, nil
}

// Builtin returns a copy of the built-in table, usable as the base for
// MergeTables.
func Builtin() map[string]Entry {
	return MergeTables(builtinUnits, nil)
}

// MergeTables overlays extra onto base without mutating either.
func MergeTables(base, extra map[string]Entry) map[string]Entry {
	merged := make(map[string]Entry, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

// builtinUnits covers the denominations most collections encounter. The
// same alias may appear under several canonicals when the word genuinely
// names different units across currencies or eras.
var builtinUnits = map[string]Entry{
	"cent": {
		Aliases: []string{"ct", "¢", "centu"},
		Plural:  "cents",
	},
	"dollar": {
		Aliases: []string{"dol", "$"},
		Plural:  "dollars",
	},
	"penny": {
		Aliases: []string{"pence", "d"},
		Plural:  "pence",
	},
	"shilling": {
		Aliases: []string{"bob"},
		Plural:  "shillings",
	},
	"pound": {
		Aliases: []string{"£", "sovereign"},
		Plural:  "pounds",
	},
	"kopek": {
		Aliases: []string{"kopeck", "kopeyka", "kopeika", "копейка", "kop"},
		Plural:  "kopeks",
	},
	"ruble": {
		Aliases: []string{"rouble", "рубль", "rub"},
		Plural:  "rubles",
	},
	"euro": {
		Aliases: []string{"€"},
		Plural:  "euro",
	},
	"eurocent": {
		Aliases: []string{"euro cent"},
		Plural:  "eurocents",
	},
	"franc": {
		Aliases: []string{"fr", "frank"},
		Plural:  "francs",
	},
	"centime": {
		Aliases: []string{"cme"},
		Plural:  "centimes",
	},
	"mark": {
		Aliases: []string{"deutsche mark", "reichsmark", "dm"},
		Plural:  "marks",
	},
	"pfennig": {
		Aliases: []string{"pf"},
		Plural:  "pfennigs",
	},
	"krone": {
		Aliases: []string{"kr", "krona", "króna", "corona", "crown"},
		Plural:  "kroner",
	},
	"crown": {
		Aliases: []string{"korona"},
		Plural:  "crowns",
	},
	"korona": {
		Aliases: []string{"corona"},
		Plural:  "korony",
	},
	"öre": {
		Aliases: []string{"oere", "øre"},
		Plural:  "öre",
	},
	"peso": {
		Aliases: []string{"pesos fuertes", "peso fuerte"},
		Plural:  "pesos",
	},
	"centavo": {
		Aliases: []string{"ctvo"},
		Plural:  "centavos",
	},
	"céntimo": {
		Aliases: []string{"centimo"},
		Plural:  "céntimos",
	},
	"real": {
		Aliases: []string{"réis", "reis"},
		Plural:  "reales",
	},
	"escudo": {
		Plural: "escudos",
	},
	"peseta": {
		Aliases: []string{"pta"},
		Plural:  "pesetas",
	},
	"lira": {
		Aliases: []string{"lire"},
		Plural:  "lire",
	},
	"florin": {
		Aliases: []string{"fl", "gulden", "forint"},
		Plural:  "florins",
	},
	"guilder": {
		Aliases: []string{"gulden"},
		Plural:  "guilders",
	},
	"forint": {
		Aliases: []string{"ft"},
		Plural:  "forints",
	},
	"zloty": {
		Aliases: []string{"złoty", "zł"},
		Plural:  "zlotych",
	},
	"grosz": {
		Aliases: []string{"groschen"},
		Plural:  "groszy",
	},
	"thaler": {
		Aliases: []string{"taler", "daler"},
		Plural:  "thalers",
	},
	"ducat": {
		Aliases: []string{"dukat"},
		Plural:  "ducats",
	},
	"dinar": {
		Aliases: []string{"динар"},
		Plural:  "dinars",
	},
	"dirham": {
		Aliases: []string{"dirhem"},
		Plural:  "dirhams",
	},
	"piastre": {
		Aliases: []string{"piaster", "qirsh"},
		Plural:  "piastres",
	},
	"yen": {
		Aliases: []string{"円", "¥"},
		Plural:  "yen",
	},
	"yuan": {
		Aliases: []string{"元", "renminbi"},
		Plural:  "yuan",
	},
	"won": {
		Plural: "won",
	},
	"rupee": {
		Aliases: []string{"rupia", "rupiah"},
		Plural:  "rupees",
	},
	"paisa": {
		Aliases: []string{"pice", "paise"},
		Plural:  "paise",
	},
	"anna": {
		Plural: "annas",
	},
	"leu": {
		Aliases: []string{"lei"},
		Plural:  "lei",
	},
	"lev": {
		Aliases: []string{"лев"},
		Plural:  "leva",
	},
	"drachma": {
		Aliases: []string{"drachme", "δραχμή"},
		Plural:  "drachmai",
	},
	"lepton": {
		Aliases: []string{"lepta"},
		Plural:  "lepta",
	},
	"kuna": {
		Plural: "kune",
	},
	"hryvnia": {
		Aliases: []string{"grivna", "гривня"},
		Plural:  "hryvnias",
	},
	"sol": {
		Aliases: []string{"sol de oro", "nuevo sol"},
		Plural:  "soles",
	},
	"bolívar": {
		Aliases: []string{"bolivar"},
		Plural:  "bolívares",
	},
	"heller": {
		Aliases: []string{"haler", "halér", "haléř"},
		Plural:  "hellers",
	},
	"koruna": {
		Aliases: []string{"kčs", "kč"},
		Plural:  "koruny",
	},
	"para": {
		Plural: "para",
	},
	"kurus": {
		Aliases: []string{"kuruş", "kurush"},
		Plural:  "kurus",
	},
	"mil": {
		Aliases: []string{"mils", "millieme", "millième"},
		Plural:  "mils",
	},
	"stotinka": {
		Aliases: []string{"stotinki"},
		Plural:  "stotinki",
	},
	"avo": {
		Plural: "avos",
	},
	"sen": {
		Plural: "sen",
	},
}
