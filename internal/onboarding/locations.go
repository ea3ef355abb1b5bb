package onboarding

// ProvinceNames fixes the keyboard order; Provinces maps each province to
// the cities accepted for it.
var ProvinceNames = []string{
	"تهران",
	"اصفهان",
	"فارس",
	"خراسان رضوی",
	"آذربایجان شرقی",
	"آذربایجان غربی",
	"خوزستان",
	"مازندران",
	"گیلان",
	"کرمان",
	"البرز",
	"قم",
	"یزد",
	"هرمزگان",
	"کرمانشاه",
}

var Provinces = map[string][]string{
	"تهران":          {"تهران", "شهریار", "اسلامشهر", "ری", "ورامین", "دماوند"},
	"اصفهان":         {"اصفهان", "کاشان", "خمینی‌شهر", "نجف‌آباد", "شاهین‌شهر"},
	"فارس":           {"شیراز", "مرودشت", "کازرون", "جهرم", "لار"},
	"خراسان رضوی":    {"مشهد", "نیشابور", "سبزوار", "تربت حیدریه", "قوچان"},
	"آذربایجان شرقی": {"تبریز", "مراغه", "مرند", "اهر", "میانه"},
	"آذربایجان غربی": {"ارومیه", "خوی", "میاندوآب", "مهاباد", "بوکان"},
	"خوزستان":        {"اهواز", "دزفول", "آبادان", "خرمشهر", "بهبهان"},
	"مازندران":       {"ساری", "بابل", "آمل", "قائم‌شهر", "چالوس"},
	"گیلان":          {"رشت", "انزلی", "لاهیجان", "لنگرود", "رودسر"},
	"کرمان":          {"کرمان", "سیرجان", "رفسنجان", "جیرفت", "بم"},
	"البرز":          {"کرج", "فردیس", "نظرآباد", "هشتگرد"},
	"قم":             {"قم"},
	"یزد":            {"یزد", "میبد", "اردکان", "بافق"},
	"هرمزگان":        {"بندرعباس", "میناب", "قشم", "بندر لنگه"},
	"کرمانشاه":       {"کرمانشاه", "اسلام‌آباد غرب", "سنقر", "هرسین"},
}

// ValidProvince reports whether the label is a known province.
func ValidProvince(name string) bool {
	_, ok := Provinces[name]
	return ok
}

// ValidCity reports whether city belongs to the given province.
func ValidCity(province, city string) bool {
	for _, c := range Provinces[province] {
		if c == city {
			return true
		}
	}
	return false
}
