package ordering

import "github.com/bazaar-kiosk/api/internal/enum"

// ChannelFor picks the menu visibility channel an order is created through.
func ChannelFor(floor, orderType string) string {
	switch {
	case orderType == enum.OrderTypeBooth:
		return enum.ChannelBooth
	case floor == enum.FloorB1:
		return enum.ChannelKitchen
	}
	return enum.ChannelCounter
}

// Visible reports whether a menu item with the given flags shows up in channel.
func Visible(channel string, counter, booth, kitchen bool) bool {
	switch channel {
	case enum.ChannelKitchen:
		return kitchen
	case enum.ChannelBooth:
		return booth
	}
	return counter
}
