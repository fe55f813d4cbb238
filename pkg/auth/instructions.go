package auth

import (
	"fmt"
	"strings"
)

// ShowAppRegistrationGuide explains how to obtain script-app credentials
func ShowAppRegistrationGuide() {
	fmt.Println(strings.Repeat("=", 72))
	fmt.Println("REDDIT API CREDENTIALS")
	fmt.Println(strings.Repeat("=", 72))
	fmt.Println()
	fmt.Println("The collector signs in with a Reddit \"script\" application.")
	fmt.Println()
	fmt.Println("STEP 1: Open https://www.reddit.com/prefs/apps while logged in")
	fmt.Println("STEP 2: Click \"create another app...\" and choose type \"script\"")
	fmt.Println("        Any redirect uri works, e.g. http://localhost:8080")
	fmt.Println("STEP 3: Note the client id (under the app name) and the secret")
	fmt.Println("STEP 4: Run `collect auth login` and enter them with the account")
	fmt.Println("        username and password the app was created under")
	fmt.Println()
	fmt.Println("Alternatively export them for a single run:")
	fmt.Println()
	fmt.Printf("  export %s='[{\"client_id\":\"...\",\"client_secret\":\"...\",\"username\":\"...\",\"password\":\"...\"}]'\n", CredentialsEnvVar)
	fmt.Println()
	fmt.Println("Only the first entry of the array is used. A .env file in the working")
	fmt.Println("directory is read as well.")
	fmt.Println(strings.Repeat("=", 72))
}
