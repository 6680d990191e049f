package i18n

var koMessages = map[string]string{
	"board.heading":        "정보 공유",
	"board.description":    "%s 게시판입니다.",
	"board.write":          "글작성",
	"board.col.no":         "번호",
	"board.col.title":      "제목",
	"board.col.author":     "글쓴이",
	"board.col.views":      "조회수",
	"board.col.replies":    "댓글수",
	"board.col.date":       "작성일",
	"board.empty":          "게시물이 없습니다.",
	"board.page.prev":      "이전",
	"board.page.next":      "다음",
	"nav.greeting":         "%s님 :)",
	"nav.signout":          "로그아웃",
	"nav.login":            "로그인",
	"nav.signup":           "회원가입",
	"profile.alt":          "프로필 이미지",
	"login.title":          "로그인",
	"login.email":          "이메일",
	"login.password":       "비밀번호",
	"login.submit":         "로그인",
	"login.with":           "%s 로그인",
	"login.oauth_failed":   "소셜 로그인에 실패했습니다. 다시 시도해 주세요.",
	"signup.title":         "회원가입",
	"signup.name":          "이름",
	"signup.email":         "이메일",
	"signup.password":      "비밀번호",
	"signup.image":         "프로필 이미지",
	"signup.submit":        "회원가입",
	"error.generic":        "일시적인 오류가 발생했습니다. 잠시 후 다시 시도해 주세요.",
	"error.not_found":      "페이지를 찾을 수 없습니다.",
	"error.board_unloaded": "게시물을 불러오지 못했습니다.",
}

var enMessages = map[string]string{
	"board.heading":        "Shared Information",
	"board.description":    "This is the %s board.",
	"board.write":          "Write",
	"board.col.no":         "No.",
	"board.col.title":      "Title",
	"board.col.author":     "Author",
	"board.col.views":      "Views",
	"board.col.replies":    "Replies",
	"board.col.date":       "Date",
	"board.empty":          "No posts yet.",
	"board.page.prev":      "Prev",
	"board.page.next":      "Next",
	"nav.greeting":         "Hi, %s :)",
	"nav.signout":          "Log out",
	"nav.login":            "Log in",
	"nav.signup":           "Sign up",
	"profile.alt":          "Profile image",
	"login.title":          "Log in",
	"login.email":          "Email",
	"login.password":       "Password",
	"login.submit":         "Log in",
	"login.with":           "Log in with %s",
	"login.oauth_failed":   "Social login failed. Please try again.",
	"signup.title":         "Sign up",
	"signup.name":          "Name",
	"signup.email":         "Email",
	"signup.password":      "Password",
	"signup.image":         "Profile image",
	"signup.submit":        "Sign up",
	"error.generic":        "A temporary error occurred. Please try again later.",
	"error.not_found":      "Page not found.",
	"error.board_unloaded": "Could not load posts.",
}
