package identity

import (
	"strings"
	"time"
)

// checksum weights and check digits for 18-digit resident identity card
// numbers (GB 11643).
var (
	residentWeights     = [17]int{7, 9, 10, 5, 8, 4, 2, 1, 6, 3, 7, 9, 10, 5, 8, 4, 2}
	residentCheckDigits = "10X98765432"
)

// provinceNames maps the leading two digits of the registration code to
// the province-level division.
var provinceNames = map[string]string{
	"11": "北京市", "12": "天津市", "13": "河北省", "14": "山西省", "15": "内蒙古自治区",
	"21": "辽宁省", "22": "吉林省", "23": "黑龙江省",
	"31": "上海市", "32": "江苏省", "33": "浙江省", "34": "安徽省", "35": "福建省",
	"36": "江西省", "37": "山东省",
	"41": "河南省", "42": "湖北省", "43": "湖南省", "44": "广东省", "45": "广西壮族自治区",
	"46": "海南省",
	"50": "重庆市", "51": "四川省", "52": "贵州省", "53": "云南省", "54": "西藏自治区",
	"61": "陕西省", "62": "甘肃省", "63": "青海省", "64": "宁夏回族自治区", "65": "新疆维吾尔自治区",
	"71": "台湾省", "81": "香港特别行政区", "82": "澳门特别行政区",
}

// ResidentIDParser parses 18-digit resident identity card numbers:
// gender from the parity of the 17th digit, birth date from digits 7-14,
// registration from the leading division code, age relative to now.
type ResidentIDParser struct {
	// now is injectable for deterministic age computation in tests.
	now func() time.Time
}

// NewResidentIDParser creates a parser using the wall clock for age
// computation.
func NewResidentIDParser() *ResidentIDParser {
	return &ResidentIDParser{now: time.Now}
}

var _ Parser = (*ResidentIDParser)(nil)

// Parse implements Parser. Any structural, checksum, or date problem
// yields (nil, false).
func (p *ResidentIDParser) Parse(raw string) (*Attributes, bool) {
	id := strings.ToUpper(strings.TrimSpace(raw))
	if len(id) != 18 {
		return nil, false
	}

	sum := 0
	for i := 0; i < 17; i++ {
		c := id[i]
		if c < '0' || c > '9' {
			return nil, false
		}
		sum += int(c-'0') * residentWeights[i]
	}
	if id[17] != residentCheckDigits[sum%11] {
		return nil, false
	}

	birthDate, err := time.Parse("20060102", id[6:14])
	if err != nil {
		return nil, false
	}

	now := p.now()
	if birthDate.After(now) {
		return nil, false
	}

	region, ok := provinceNames[id[:2]]
	if !ok {
		return nil, false
	}

	gender := "女"
	if (id[16]-'0')%2 == 1 {
		gender = "男"
	}

	return &Attributes{
		Gender:       gender,
		BirthDate:    birthDate,
		Age:          age(birthDate, now),
		Registration: region,
	}, true
}

// age counts whole years between birth and now.
func age(birth, now time.Time) int {
	years := now.Year() - birth.Year()
	if now.Month() < birth.Month() ||
		(now.Month() == birth.Month() && now.Day() < birth.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}
