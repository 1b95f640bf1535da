package keybot

import "fmt"

const (
	MessageInvalidKey       = "❌ Invalid or already used key!"
	MessageMissingRole      = "❌ You do not have the required role to register."
	MessageStoreFailure     = "❌ Something went wrong while saving to the database!"
	MessageKeyCreateFailure = "❌ Something went wrong while creating the key!"
	MessagePlatformFailure  = "❌ Could not verify your account, try again later."
	MessageGenericFailure   = "❌ Something went wrong, try again later."
)

// publicMessages maps internal failure kinds to what the caller is allowed to
// see. A missing key, a used key and a failed lookup read the same.
var publicMessages = map[string]string{
	TextCodeInvalidKey:       MessageInvalidKey,
	TextCodeKeyUsed:          MessageInvalidKey,
	TextCodeKeyLookupFailure: MessageInvalidKey,
	TextCodeMissingRole:      MessageMissingRole,
	TextCodeStoreFailure:     MessageStoreFailure,
	TextCodeKeyCreateFailure: MessageKeyCreateFailure,
	TextCodePlatformFailure:  MessagePlatformFailure,
}

// PublicMessage returns the user facing text for err
func PublicMessage(err error) string {
	if msg, ok := publicMessages[TextCode(err)]; ok {
		return msg
	}
	return MessageGenericFailure
}

func registeredMessage(token string) string {
	return fmt.Sprintf("✅ Registration complete! Here is your token: `%s`. You can now use it to log in on the website.", token)
}

func keyCreatedMessage(key string) string {
	return fmt.Sprintf("✅ New key: `%s`", key)
}
