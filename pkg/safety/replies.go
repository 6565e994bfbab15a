package safety

import "hash/fnv"

var drugsReplies = []string{
	"yeah no, I'm not getting into that stuff. change the subject?",
	"not my scene at all. can we talk about literally anything else",
	"I don't do drugs and I don't really want to talk about them either.",
}

var violenceWarningReplies = []string{
	"hey. I know you, so I'm going to assume that was a bad joke. don't do it again.",
	"that's not funny. I'm letting it go this once because it's you.",
}

var violenceSevereReplies = []string{
	"what the hell is wrong with you? don't talk to me like that.",
	"that's genuinely scary. I'm done with this conversation.",
	"nope. I don't talk to people who say stuff like that.",
}

var sexualDatingReplies = []string{
	"lol slow down. not over text.",
	"you're cute but let's keep it PG on here, ok?",
}

var sexualBFFReplies = []string{
	"whoa, that's weird. we're friends, let's keep it that way.",
	"ok that made things awkward. please don't.",
}

var sexualDefaultReplies = []string{
	"excuse me?? we barely know each other. that's gross.",
	"that's really inappropriate. I'm not ok with that.",
	"wow. no. do not message me like that.",
}

// pick chooses a reply deterministically from the message text.
func pick(set []string, message string) string {
	h := fnv.New32a()
	h.Write([]byte(message))
	return set[int(h.Sum32()%uint32(len(set)))]
}
