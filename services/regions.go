package services

const (
	RegionCaribe    = "caribe"
	RegionAndina    = "andina"
	RegionPacifico  = "pacifico"
	RegionOrinoquia = "orinoquia"
	RegionAmazonia  = "amazonia"
)

var cityRegions = map[string]string{
	"barranquilla": RegionCaribe,
	"cartagena":    RegionCaribe,
	"santa marta":  RegionCaribe,
	"valledupar":   RegionCaribe,
	"montería":     RegionCaribe,
	"sincelejo":    RegionCaribe,
	"riohacha":     RegionCaribe,
	"ciénaga":      RegionCaribe,
	"magangué":     RegionCaribe,
	"maicao":       RegionCaribe,
	"turbo":        RegionCaribe,
	"lorica":       RegionCaribe,
	"sahagún":      RegionCaribe,
	"aracataca":    RegionCaribe,
	"el banco":     RegionCaribe,
	"san marcos":   RegionCaribe,
	"cereté":       RegionCaribe,
	"malambo":      RegionCaribe,

	// Wholesale market listed under its own name in some bulletins.
	"cartagena frigorífico candelaria": RegionCaribe,

	"bogotá":                     RegionAndina,
	"medellín":                   RegionAndina,
	"bucaramanga":                RegionAndina,
	"cúcuta":                     RegionAndina,
	"girardot":                   RegionAndina,
	"ibagué":                     RegionAndina,
	"neiva":                      RegionAndina,
	"pereira":                    RegionAndina,
	"manizales":                  RegionAndina,
	"armenia":                    RegionAndina,
	"duitama":                    RegionAndina,
	"pamplona":                   RegionAndina,
	"sogamoso":                   RegionAndina,
	"tunja":                      RegionAndina,
	"rionegro":                   RegionAndina,
	"san gil":                    RegionAndina,
	"san gilpanela":              RegionAndina,
	"socorro":                    RegionAndina,
	"chiquinquirá":               RegionAndina,
	"el santuario":               RegionAndina,
	"marinilla":                  RegionAndina,
	"cajamarca":                  RegionAndina,
	"carmen de viboral":          RegionAndina,
	"el carmen de viboral":       RegionAndina,
	"la ceja":                    RegionAndina,
	"san vicente":                RegionAndina,
	"sonsón":                     RegionAndina,
	"peñol":                      RegionAndina,
	"santa bárbara":              RegionAndina,
	"yarumal":                    RegionAndina,
	"yolombó":                    RegionAndina,
	"la virginia":                RegionAndina,
	"la unión":                   RegionAndina,
	"la parada":                  RegionAndina,
	"la dorada":                  RegionAndina,
	"charalá":                    RegionAndina,
	"güepsa":                     RegionAndina,
	"moniquirá":                  RegionAndina,
	"puente nacional":            RegionAndina,
	"santana":                    RegionAndina,
	"vélez":                      RegionAndina,
	"caparrapí":                  RegionAndina,
	"nocaima":                    RegionAndina,
	"villeta":                    RegionAndina,
	"honda":                      RegionAndina,
	"ubaté":                      RegionAndina,
	"alvarado":                   RegionAndina,
	"espinal":                    RegionAndina,
	"lérida":                     RegionAndina,
	"purificación":               RegionAndina,
	"venadillo":                  RegionAndina,
	"ancuyá":                     RegionAndina,
	"consacá":                    RegionAndina,
	"sandoná":                    RegionAndina,
	"tibasosa":                   RegionAndina,
	"san sebastián de mariquita": RegionAndina,

	"cali":                 RegionPacifico,
	"buenaventura":         RegionPacifico,
	"tuluá":                RegionPacifico,
	"palmira":              RegionPacifico,
	"pasto":                RegionPacifico,
	"popayán":              RegionPacifico,
	"tumaco":               RegionPacifico,
	"san andrés de tumaco": RegionPacifico,
	"yumbo":                RegionPacifico,
	"quibdó":               RegionPacifico,
	"ipiales":              RegionPacifico,
	"cartago":              RegionPacifico,
	"túquerres":            RegionPacifico,

	"villavicencio":  RegionOrinoquia,
	"yopal":          RegionOrinoquia,
	"arauca":         RegionOrinoquia,
	"puerto carreño": RegionOrinoquia,

	"florencia": RegionAmazonia,
	"mocoa":     RegionAmazonia,
	"leticia":   RegionAmazonia,
	"mitú":      RegionAmazonia,
	"inírida":   RegionAmazonia,
}

// regionIndex is cityRegions keyed by NormalizeText of each city.
var regionIndex = func() map[string]string {
	idx := make(map[string]string, len(cityRegions))
	for city, region := range cityRegions {
		idx[NormalizeText(city)] = region
	}
	return idx
}()

// RegionFor returns the macro-region of a city, or "" when it is unmapped.
// Accents, case and spacing of the input do not matter.
func RegionFor(city string) string {
	return regionIndex[NormalizeText(city)]
}
