package domain

const RequesterCtxKey = "wu-requester"

const (
	DefaultListLimit     = 100
	MaxListLimit         = 100
	DefaultActivityLimit = 16
	MaxActivityLimit     = 64
)

// ActivityChannel is the pub/sub channel new activities are announced on.
const ActivityChannel = "works:activities"
