package notify

const defaultAppID = "carematch"

// AMQPOption configures an AMQPNotifier.
type AMQPOption func(*AMQPNotifier)

// WithAppID sets the AppId property stamped on every message.
func WithAppID(id string) AMQPOption {
	return func(n *AMQPNotifier) {
		if id != "" {
			n.appID = id
		}
	}
}
