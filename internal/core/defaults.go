package core

var (
	DefaultIncomeCategories = []string{
		"십일조", "주일헌금", "감사헌금", "선교헌금", "건축헌금", "절기헌금",
		"사경회헌금", "총회주일헌금", "기타수입", "이월금", "예비비", "기타헌금",
	}

	DefaultExpenseCategories = []string{
		"교회관리비", "교육비", "목회자가정", "목회사역", "심방", "예배",
		"전도,홍보,새신자", "친교", "사무행정", "교회차량관리", "부교역자", "예비비", "기타",
	}

	DefaultFestivalCategories = []string{
		"신년감사", "부활감사", "맥추감사", "추수감사", "성탄감사", "성령강림", "송구영신",
	}

	DefaultOtherIncomeCategories = []string{
		"생일감사", "심방감사", "일천번제", "외부후원금", "목적헌금", "장학지원헌금",
	}

	DefaultExpenseSubCategories = map[string][]string{
		"교육비": {
			"교육자료(교재 및 성경)", "수련회(행사)", "주일학교(교육,지원)", "주일학교(운영비)", "강사비", "교육 예비비", "기타",
		},
		"교회관리비": {
			"건물관리비", "비품구입비", "홈페이지관리비", "금융관리", "선교구제장학금", "건축헌금", "사택관리",
			"복사기(임대)", "복사기(자체)", "전기요금", "전화요금", "가스요금", "정수기(1층)", "정수기(2층)",
			"대출이자상환금", "인터넷", "예비비", "기타",
		},
		"목회자가정": {
			"생활비", "상여금", "휴가비", "국민연금", "건강보험", "은퇴적립금", "은급비", "예비비",
		},
		"목회사역": {
			"목회자도서비", "목회대외협력비", "목회용품", "목회사역비", "목회교육비", "목회(교육) 수련비", "예비비", "기타",
		},
		"심방": {
			"교우심방", "교제 섬김", "축하", "부의", "기타",
		},
		"예배": {
			"강단(교회) 미화", "절기장식", "현수막", "예배용품(음향)", "기타",
		},
		"전도,홍보,새신자": {
			"전도활동비", "교회(전도)행사", "새신자", "교회홍보", "예비비", "기타",
		},
		"친교": {
			"봉사위원회", "친교용품", "접대비", "행사(교제)", "주방", "예비비", "기타",
		},
		"사무행정": {
			"달력", "행정소모품", "노회상회비", "노회선교분담금", "총회주일헌금", "기타행정(사무실)", "예비비",
		},
		"교회차량관리": {
			"승용차량세금", "승용차연료비", "승용차유지보수", "승합차량세금", "승합차량연료비", "승합차량유지보수",
			"보험료", "월불입금", "예비비", "기타",
		},
		"부교역자": {
			"부교역자사례비", "학업지원금", "기타지원", "예비비",
		},
		"예비비": {
			"교회시설, 시스템", "예비비",
		},
	}
)

// DefaultCategories returns a fresh copy of the built-in category set.
func DefaultCategories() Categories {
	return Categories{
		Expense:     DefaultExpenseCategories,
		Income:      DefaultIncomeCategories,
		Festival:    DefaultFestivalCategories,
		OtherIncome: DefaultOtherIncomeCategories,
		ExpenseSub:  DefaultExpenseSubCategories,
	}.Clone()
}

// EmptyState is the state of a freshly installed ledger.
func EmptyState() State {
	return State{Categories: DefaultCategories()}
}
