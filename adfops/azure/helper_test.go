package azure

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveSubscriptionID(t *testing.T) {
	t.Setenv("AZURE_SUBSCRIPTION_ID", "")
	t.Setenv("ARM_SUBSCRIPTION_ID", "")

	_, err := resolveSubscriptionID("")
	require.Error(t, err)
	require.Contains(t, err.Error(), "AZURE_SUBSCRIPTION_ID")

	t.Setenv("ARM_SUBSCRIPTION_ID", "arm-sub")
	sub, err := resolveSubscriptionID("")
	require.NoError(t, err)
	require.Equal(t, "arm-sub", sub)

	// AZURE_SUBSCRIPTION_ID takes precedence over ARM_SUBSCRIPTION_ID.
	t.Setenv("AZURE_SUBSCRIPTION_ID", "azure-sub")
	sub, err = resolveSubscriptionID("")
	require.NoError(t, err)
	require.Equal(t, "azure-sub", sub)

	// An explicit value beats the environment.
	sub, err = resolveSubscriptionID("explicit-sub")
	require.NoError(t, err)
	require.Equal(t, "explicit-sub", sub)
}

func TestStorageAccountURL(t *testing.T) {
	require.Equal(t, "https://myaccount.blob.core.windows.net", storageAccountURL("myaccount"))
}
