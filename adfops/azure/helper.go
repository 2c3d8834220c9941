// Package azure provides the Azure operations for adfops: provisioning,
// container materialization, pipeline deployment, runs and status.
package azure

import (
	"fmt"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/samsarahq/go/oops"
	datadog "github.com/zorkian/go-datadog-api"
)

// =============================================================================
// Helper Functions
// =============================================================================

// resolveSubscriptionID returns the explicit value when set, otherwise falls
// back to the environment. AZURE_SUBSCRIPTION_ID takes precedence over
// ARM_SUBSCRIPTION_ID.
func resolveSubscriptionID(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if envVal := os.Getenv("AZURE_SUBSCRIPTION_ID"); envVal != "" {
		return envVal, nil
	}
	if envVal := os.Getenv("ARM_SUBSCRIPTION_ID"); envVal != "" {
		return envVal, nil
	}
	return "", oops.Errorf("subscription ID is not set: pass --subscription or set $AZURE_SUBSCRIPTION_ID or $ARM_SUBSCRIPTION_ID")
}

// newCredential builds the default credential chain (environment, managed
// identity, Azure CLI).
func newCredential() (azcore.TokenCredential, error) {
	credential, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, oops.Wrapf(err, "error creating default Azure credential")
	}
	return credential, nil
}

// storageAccountURL returns the blob service endpoint of a storage account.
func storageAccountURL(accountName string) string {
	return fmt.Sprintf("https://%s.blob.core.windows.net", accountName)
}

// newBlobClient builds an AAD-authenticated blob service client for the
// account.
func newBlobClient(accountName string, credential azcore.TokenCredential) (*azblob.Client, error) {
	client, err := azblob.NewClient(storageAccountURL(accountName), credential, nil)
	if err != nil {
		return nil, oops.Wrapf(err, "error creating blob client for account %s", accountName)
	}
	return client, nil
}

// newDatadogClient builds a Datadog client when DD_API_KEY is configured.
// Returns nil when it is not; metric posting is optional everywhere.
func newDatadogClient() *datadog.Client {
	apiKey := os.Getenv("DD_API_KEY")
	if apiKey == "" {
		return nil
	}
	return datadog.NewClient(apiKey, os.Getenv("DD_APP_KEY"))
}
