package matcher

// languageKeywords maps a language code to its fixed phrase set:
// wildlife-trade terms, commerce/contact cues, and messaging-app name
// variants. All phrases are stored lowercase.
var languageKeywords = map[string][]string{
	"en": {
		"ivory", "rhino horn", "pangolin", "pangolin scale", "tiger skin",
		"tiger claw", "tiger bone", "leopard skin", "bear bile", "turtle shell",
		"elephant tusk", "shahtoosh", "red sanders",
		"for sale", "price", "best price", "order now", "buy now",
		"contact", "call me", "dm me", "inbox me",
		"whatsapp", "whats app", "watsapp", "telegram", "signal app",
	},
	"hi": {
		"haathi daant", "gainde ka seeng", "baagh ki khaal", "tendua khaal",
		"kachhua", "bikri ke liye", "keemat", "daam", "sampark kare",
		"call karo", "whatsapp karo",
		"हाथी दांत", "गैंडे का सींग", "बाघ की खाल", "बिक्री", "कीमत",
		"संपर्क", "व्हाट्सएप",
	},
	"bn": {
		"hatir dat", "bagher chamra", "kochhop", "bikroy", "dam", "jogajog",
		"হাতির দাঁত", "বাঘের চামড়া", "বিক্রয়", "দাম", "যোগাযোগ",
		"whatsapp", "হোয়াটসঅ্যাপ",
	},
	"ta": {
		"yanai thantham", "puli thol", "aamai", "virpanai", "vilai",
		"thodarbu kolla",
		"யானை தந்தம்", "புலி தோல்", "விற்பனை", "விலை", "தொடர்பு",
		"whatsapp", "வாட்ஸ்அப்",
	},
	"te": {
		"enugu dantam", "puli charmam", "tabelu", "ammakaniki", "dhara",
		"sampradinchandi",
		"ఏనుగు దంతం", "పులి చర్మం", "అమ్మకానికి", "ధర", "సంప్రదించండి",
		"whatsapp", "వాట్సాప్",
	},
}
