package geo

// counties maps each county to the cities offered in intake dropdowns.
var counties = []countyData{
	{"Alba", []string{"Alba Iulia", "Aiud", "Blaj", "Sebeș", "Cugir"}},
	{"Arad", []string{"Arad", "Lipova", "Ineu", "Chișineu-Criș"}},
	{"Argeș", []string{"Pitești", "Câmpulung", "Curtea de Argeș", "Mioveni"}},
	{"Bacău", []string{"Bacău", "Onești", "Moinești", "Comănești"}},
	{"Bihor", []string{"Oradea", "Salonta", "Marghita", "Beiuș"}},
	{"Bistrița-Năsăud", []string{"Bistrița", "Năsăud", "Beclean"}},
	{"Botoșani", []string{"Botoșani", "Dorohoi", "Darabani"}},
	{"Brașov", []string{"Brașov", "Făgăraș", "Săcele", "Codlea", "Râșnov"}},
	{"Brăila", []string{"Brăila", "Ianca", "Însurăței"}},
	{"București", []string{"București"}},
	{"Buzău", []string{"Buzău", "Râmnicu Sărat", "Nehoiu"}},
	{"Caraș-Severin", []string{"Reșița", "Caransebeș", "Oravița"}},
	{"Călărași", []string{"Călărași", "Oltenița", "Lehliu-Gară"}},
	{"Cluj", []string{"Cluj-Napoca", "Turda", "Dej", "Câmpia Turzii", "Gherla", "Florești"}},
	{"Constanța", []string{"Constanța", "Mangalia", "Medgidia", "Năvodari", "Ovidiu"}},
	{"Covasna", []string{"Sfântu Gheorghe", "Târgu Secuiesc", "Covasna"}},
	{"Dâmbovița", []string{"Târgoviște", "Moreni", "Pucioasa", "Găești"}},
	{"Dolj", []string{"Craiova", "Băilești", "Calafat", "Filiași"}},
	{"Galați", []string{"Galați", "Tecuci", "Târgu Bujor"}},
	{"Giurgiu", []string{"Giurgiu", "Bolintin-Vale", "Mihăilești"}},
	{"Gorj", []string{"Târgu Jiu", "Motru", "Rovinari"}},
	{"Harghita", []string{"Miercurea Ciuc", "Odorheiu Secuiesc", "Gheorgheni"}},
	{"Hunedoara", []string{"Deva", "Hunedoara", "Petroșani", "Orăștie"}},
	{"Ialomița", []string{"Slobozia", "Fetești", "Urziceni"}},
	{"Iași", []string{"Iași", "Pașcani", "Hârlău", "Târgu Frumos"}},
	{"Ilfov", []string{"Voluntari", "Buftea", "Pantelimon", "Popești-Leordeni", "Otopeni", "Chiajna"}},
	{"Maramureș", []string{"Baia Mare", "Sighetu Marmației", "Borșa"}},
	{"Mehedinți", []string{"Drobeta-Turnu Severin", "Orșova", "Strehaia"}},
	{"Mureș", []string{"Târgu Mureș", "Reghin", "Sighișoara", "Târnăveni"}},
	{"Neamț", []string{"Piatra Neamț", "Roman", "Târgu Neamț"}},
	{"Olt", []string{"Slatina", "Caracal", "Balș"}},
	{"Prahova", []string{"Ploiești", "Câmpina", "Sinaia", "Băicoi", "Breaza"}},
	{"Satu Mare", []string{"Satu Mare", "Carei", "Negrești-Oaș"}},
	{"Sălaj", []string{"Zalău", "Șimleu Silvaniei", "Jibou"}},
	{"Sibiu", []string{"Sibiu", "Mediaș", "Cisnădie", "Avrig"}},
	{"Suceava", []string{"Suceava", "Fălticeni", "Rădăuți", "Câmpulung Moldovenesc", "Vatra Dornei"}},
	{"Teleorman", []string{"Alexandria", "Roșiorii de Vede", "Turnu Măgurele"}},
	{"Timiș", []string{"Timișoara", "Lugoj", "Sânnicolau Mare", "Jimbolia", "Dumbrăvița"}},
	{"Tulcea", []string{"Tulcea", "Babadag", "Măcin"}},
	{"Vaslui", []string{"Vaslui", "Bârlad", "Huși"}},
	{"Vâlcea", []string{"Râmnicu Vâlcea", "Drăgășani", "Horezu"}},
	{"Vrancea", []string{"Focșani", "Adjud", "Mărășești"}},
}

type countyData struct {
	name   string
	cities []string
}
