package models

import "net/url"

// NotificationType categorises what a notice is about
type NotificationType string

const (
	TypeDownload        NotificationType = "Download"
	TypeOrganize        NotificationType = "Organize"
	TypeSubscribe       NotificationType = "Subscribe"
	TypeSiteMessage     NotificationType = "SiteMessage"
	TypeMediaServer     NotificationType = "MediaServer"
	TypeManual          NotificationType = "Manual"
	TypePluginMessage   NotificationType = "PluginMessage"
	TypeScheduleMessage NotificationType = "ScheduleMessage"
	TypeOther           NotificationType = "Other"
)

var notificationTypes = []NotificationType{
	TypeDownload,
	TypeOrganize,
	TypeSubscribe,
	TypeSiteMessage,
	TypeMediaServer,
	TypeManual,
	TypePluginMessage,
	TypeScheduleMessage,
	TypeOther,
}

var typeLabels = map[NotificationType]string{
	TypeDownload:        "Resource download",
	TypeOrganize:        "Library import",
	TypeSubscribe:       "Subscription",
	TypeSiteMessage:     "Site message",
	TypeMediaServer:     "Media server",
	TypeManual:          "Manual handling",
	TypePluginMessage:   "Plugin",
	TypeScheduleMessage: "Scheduled task",
	TypeOther:           "Other",
}

// NotificationTypes returns every known type in display order
func NotificationTypes() []NotificationType {
	out := make([]NotificationType, len(notificationTypes))
	copy(out, notificationTypes)
	return out
}

// Valid reports whether t is a known type name
func (t NotificationType) Valid() bool {
	_, ok := typeLabels[t]
	return ok
}

// Label is the human readable name of the type
func (t NotificationType) Label() string {
	if l, ok := typeLabels[t]; ok {
		return l
	}
	return string(t)
}

// Topic names an event bus subject
type Topic string

const TopicNoticeMessage Topic = "notice.message"

// Notice is a notification published by an event source.
// A non-empty Channel means another channel has already taken it.
type Notice struct {
	Channel string           `json:"channel,omitempty"`
	Type    NotificationType `json:"type,omitempty"`
	Title   string           `json:"title,omitempty"`
	Text    string           `json:"text,omitempty"`
	Image   string           `json:"image,omitempty"`
}

// DeviceTag identifies this forwarder to the receiving endpoint
const DeviceTag = "WebHookMsg"

// DispatchPayload is what gets sent to the webhook
type DispatchPayload struct {
	Device string `json:"device"`
	Title  string `json:"title"`
	Desp   string `json:"desp"`
}

func NewDispatchPayload(n Notice) DispatchPayload {
	return DispatchPayload{
		Device: DeviceTag,
		Title:  n.Title,
		Desp:   n.Text,
	}
}

// Query encodes the payload as URL query parameters. Empty fields are left out.
func (p DispatchPayload) Query() url.Values {
	q := url.Values{}
	q.Set("device", p.Device)
	if p.Title != "" {
		q.Set("title", p.Title)
	}
	if p.Desp != "" {
		q.Set("desp", p.Desp)
	}
	return q
}
